package app

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"google_reviews/internal/domain"
)

// isoMillis matches what browsers produce for Date.toISOString.
const isoMillis = "2006-01-02T15:04:05.000Z07:00"

var starRatings = map[domain.StarRating]int{
	domain.StarRatingUnspecified: 0,
	domain.StarRatingOne:         1,
	domain.StarRatingTwo:         2,
	domain.StarRatingThree:       3,
	domain.StarRatingFour:        4,
	domain.StarRatingFive:        5,
}

// StarRatingToInt maps the enumeration token; unknown tokens count as unspecified.
func StarRatingToInt(s domain.StarRating) int {
	return starRatings[s]
}

// Normalize maps either upstream review shape onto the canonical Review.
func Normalize(u domain.UpstreamReview, now time.Time) domain.Review {
	switch r := u.(type) {
	case domain.GoogleReview:
		return fromBusinessProfile(r, now)
	case domain.PlacesReview:
		return fromPlaces(r)
	default:
		log.Error().Str("type", fmt.Sprintf("%T", u)).Msg("unknown upstream review type")
		return domain.Review{Author: domain.AnonymousAuthor}
	}
}

func fromBusinessProfile(r domain.GoogleReview, now time.Time) domain.Review {
	author := strings.TrimSpace(r.Reviewer.DisplayName)
	if author == "" {
		author = domain.AnonymousAuthor
	}
	out := domain.Review{
		ID:           lastSegment(r.Name),
		Author:       author,
		AuthorPhoto:  r.Reviewer.ProfilePhotoURL,
		Rating:       StarRatingToInt(r.StarRating),
		Text:         r.Comment,
		CreatedAt:    r.CreateTime,
		RelativeTime: RelativeTime(r.CreateTime, now),
	}
	if r.ReviewReply != nil {
		out.Reply = &domain.Reply{Text: r.ReviewReply.Comment, CreatedAt: r.ReviewReply.UpdateTime}
	}
	return out
}

func fromPlaces(r domain.PlacesReview) domain.Review {
	author := strings.TrimSpace(r.AuthorName)
	if author == "" {
		author = domain.AnonymousAuthor
	}
	return domain.Review{
		// Places gives no review id; the timestamp is unique enough within one place's five reviews
		ID:           "places-" + strconv.FormatInt(r.Time, 10),
		Author:       author,
		AuthorPhoto:  r.ProfilePhotoURL,
		Rating:       r.Rating,
		Text:         r.Text,
		CreatedAt:    time.Unix(r.Time, 0).UTC().Format(isoMillis),
		RelativeTime: r.RelativeTimeDescription,
	}
}

// NormalizeBusinessProfile maps a page set of Business Profile reviews, keeping upstream order.
func NormalizeBusinessProfile(in []domain.GoogleReview, now time.Time) []domain.Review {
	out := make([]domain.Review, 0, len(in))
	for _, r := range in {
		out = append(out, Normalize(r, now))
	}
	return out
}

func NormalizePlaces(in []domain.PlacesReview) []domain.Review {
	out := make([]domain.Review, 0, len(in))
	for _, r := range in {
		out = append(out, Normalize(r, time.Time{}))
	}
	return out
}

func lastSegment(name string) string {
	if i := strings.LastIndex(name, "/"); i >= 0 {
		return name[i+1:]
	}
	return name
}
