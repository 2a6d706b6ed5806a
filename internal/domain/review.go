package domain

// Source identifies which upstream API produced a result.
type Source string

const (
	SourceBusinessProfile Source = "business-profile"
	SourcePlaces          Source = "places"
)

// AnonymousAuthor is shown when the upstream omits the reviewer name.
const AnonymousAuthor = "Anonymous"

// Review is the canonical review shape served to the widget.
type Review struct {
	ID           string `json:"id"`
	Author       string `json:"author"`
	AuthorPhoto  string `json:"authorPhoto,omitempty"`
	Rating       int    `json:"rating"`
	Text         string `json:"text"`
	CreatedAt    string `json:"createdAt"`
	RelativeTime string `json:"relativeTime"`
	Reply        *Reply `json:"reply,omitempty"`
}

// Reply is the owner's answer to a review (at most one per review).
type Reply struct {
	Text      string `json:"text"`
	CreatedAt string `json:"createdAt"`
}

// AggregatedReviewResult is what the source selector produces before it is wrapped for transport.
// TotalCount is never lower than len(Reviews).
type AggregatedReviewResult struct {
	Reviews       []Review
	TotalCount    int
	AverageRating float64
	BusinessName  string
	Source        Source
}

type Business struct {
	Name         string  `json:"name"`
	Rating       float64 `json:"rating"`
	TotalReviews int     `json:"totalReviews"`
}

// ReviewsResponse is the envelope returned by GET /reviews and stored in the result cache.
type ReviewsResponse struct {
	Success  bool     `json:"success"`
	Business Business `json:"business"`
	Reviews  []Review `json:"reviews"`
	CachedAt string   `json:"cachedAt"`
	Source   Source   `json:"source,omitempty"`
	Error    string   `json:"error,omitempty"`
}

// Account is a Business Profile account as exposed by GET /accounts.
type Account struct {
	ID          string `json:"id"`
	FullName    string `json:"fullName"`
	DisplayName string `json:"displayName"`
	Type        string `json:"type"`
}

// Location is a Business Profile location as exposed by GET /locations.
type Location struct {
	ID       string         `json:"id"`
	FullName string         `json:"fullName"`
	Title    string         `json:"title"`
	Website  string         `json:"website,omitempty"`
	Address  *PostalAddress `json:"address,omitempty"`
}

type PostalAddress struct {
	AddressLines       []string `json:"addressLines,omitempty"`
	Locality           string   `json:"locality,omitempty"`
	AdministrativeArea string   `json:"administrativeArea,omitempty"`
	PostalCode         string   `json:"postalCode,omitempty"`
	RegionCode         string   `json:"regionCode,omitempty"`
}

// PlaceCandidate is one result of the place lookup helper.
type PlaceCandidate struct {
	PlaceID          string   `json:"place_id"`
	Name             string   `json:"name"`
	FormattedAddress string   `json:"formatted_address,omitempty"`
	Rating           *float64 `json:"rating,omitempty"`
	UserRatingsTotal *int     `json:"user_ratings_total,omitempty"`
}

// TokenGrant is the token endpoint answer to an authorization-code exchange.
type TokenGrant struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	ExpiresIn    int64  `json:"expires_in"`
	TokenType    string `json:"token_type"`
}

// CacheStats describes the result cache contents.
type CacheStats struct {
	Size int      `json:"size"`
	Keys []string `json:"keys"`
}
