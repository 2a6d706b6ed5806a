package domain

// UpstreamReview is a review in one of the two upstream wire formats.
// Only GoogleReview and PlacesReview implement it.
type UpstreamReview interface {
	upstreamReview()
}

// StarRating is the Business Profile enumeration token for a rating.
type StarRating string

const (
	StarRatingUnspecified StarRating = "STAR_RATING_UNSPECIFIED"
	StarRatingOne         StarRating = "ONE"
	StarRatingTwo         StarRating = "TWO"
	StarRatingThree       StarRating = "THREE"
	StarRatingFour        StarRating = "FOUR"
	StarRatingFive        StarRating = "FIVE"
)

type Reviewer struct {
	ProfilePhotoURL string `json:"profilePhotoUrl,omitempty"`
	DisplayName     string `json:"displayName"`
	IsAnonymous     bool   `json:"isAnonymous,omitempty"`
}

type ReviewReply struct {
	Comment    string `json:"comment"`
	UpdateTime string `json:"updateTime"`
}

// GoogleReview is a review from the Business Profile v4 API.
// Name has the form accounts/{a}/locations/{l}/reviews/{id}.
type GoogleReview struct {
	Name        string       `json:"name"`
	ReviewID    string       `json:"reviewId"`
	Reviewer    Reviewer     `json:"reviewer"`
	StarRating  StarRating   `json:"starRating"`
	Comment     string       `json:"comment,omitempty"`
	CreateTime  string       `json:"createTime"`
	UpdateTime  string       `json:"updateTime"`
	ReviewReply *ReviewReply `json:"reviewReply,omitempty"`
}

func (GoogleReview) upstreamReview() {}

// GoogleReviewsPage is one page of the v4 reviews listing. The aggregate fields
// may be missing on some pages.
type GoogleReviewsPage struct {
	Reviews          []GoogleReview `json:"reviews"`
	AverageRating    *float64       `json:"averageRating,omitempty"`
	TotalReviewCount *int           `json:"totalReviewCount,omitempty"`
	NextPageToken    string         `json:"nextPageToken,omitempty"`
}

// BusinessProfileReviews is the result of walking every reviews page.
type BusinessProfileReviews struct {
	Reviews       []GoogleReview
	TotalCount    int
	AverageRating float64
}

// PlacesReview is a review from the Places details API. Time is unix seconds.
type PlacesReview struct {
	AuthorName              string `json:"author_name"`
	AuthorURL               string `json:"author_url,omitempty"`
	ProfilePhotoURL         string `json:"profile_photo_url,omitempty"`
	Rating                  int    `json:"rating"`
	RelativeTimeDescription string `json:"relative_time_description"`
	Text                    string `json:"text"`
	Time                    int64  `json:"time"`
}

func (PlacesReview) upstreamReview() {}

// PlaceDetails is the subset of place details the service needs. Reviews holds at most 5 entries.
type PlaceDetails struct {
	Name         string
	Rating       float64
	TotalReviews int
	Reviews      []PlacesReview
}
