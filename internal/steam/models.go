package steam

// Wire models for the review-listing and player-summary APIs. Records are
// immutable once fetched; ownership stays with the page that produced them.

type ReviewAuthor struct {
	SteamID              string `json:"steamid"`
	NumGamesOwned        int    `json:"num_games_owned"`
	NumReviews           int    `json:"num_reviews"`
	PlaytimeForever      int    `json:"playtime_forever"`
	PlaytimeLastTwoWeeks int    `json:"playtime_last_two_weeks"`
	PlaytimeAtReview     int    `json:"playtime_at_review"`
	LastPlayed           int64  `json:"last_played"`
}

type ReviewRecord struct {
	RecommendationID         string       `json:"recommendationid"`
	Author                   ReviewAuthor `json:"author"`
	Language                 string       `json:"language"`
	Review                   string       `json:"review"`
	TimestampCreated         int64        `json:"timestamp_created"`
	TimestampUpdated         int64        `json:"timestamp_updated"`
	VotedUp                  bool         `json:"voted_up"`
	VotesUp                  int          `json:"votes_up"`
	VotesFunny               int          `json:"votes_funny"`
	CommentCount             int          `json:"comment_count"`
	SteamPurchase            bool         `json:"steam_purchase"`
	ReceivedForFree          bool         `json:"received_for_free"`
	WrittenDuringEarlyAccess bool         `json:"written_during_early_access"`
}

type QuerySummary struct {
	NumReviews      int    `json:"num_reviews"`
	ReviewScore     int    `json:"review_score"`
	ReviewScoreDesc string `json:"review_score_desc"`
	TotalPositive   int    `json:"total_positive"`
	TotalNegative   int    `json:"total_negative"`
	TotalReviews    int    `json:"total_reviews"`
}

// ReviewPage is one page of the review listing. An empty cursor or an
// empty review slice signals the end of the stream.
type ReviewPage struct {
	Summary QuerySummary   `json:"summary"`
	Reviews []ReviewRecord `json:"reviews"`
	Cursor  string         `json:"cursor"`
}

type PlayerProfile struct {
	SteamID                  string `json:"steamid"`
	CommunityVisibilityState int    `json:"communityvisibilitystate"`
	ProfileState             int    `json:"profilestate"`
	PersonaName              string `json:"personaname"`
	ProfileURL               string `json:"profileurl"`
	Avatar                   string `json:"avatar"`
	AvatarMedium             string `json:"avatarmedium"`
	AvatarFull               string `json:"avatarfull"`
	PersonaState             int    `json:"personastate"`
	RealName                 string `json:"realname,omitempty"`
	TimeCreated              int64  `json:"timecreated,omitempty"`
	CountryCode              string `json:"loccountrycode,omitempty"`
	StateCode                string `json:"locstatecode,omitempty"`
}

// EnrichedAuthor replaces the author stub of a ReviewRecord with profile
// fields. When no profile is known the placeholder values apply.
type EnrichedAuthor struct {
	SteamID      string `json:"steamid"`
	PersonaName  string `json:"personaname"`
	ProfileURL   string `json:"profileurl"`
	Avatar       string `json:"avatar"`
	AvatarMedium string `json:"avatarmedium"`
	AvatarFull   string `json:"avatarfull"`
}

type EnrichedReview struct {
	ReviewRecord
	Author EnrichedAuthor `json:"author"`
}

type EnrichedReviewPage struct {
	Summary QuerySummary     `json:"summary"`
	Reviews []EnrichedReview `json:"reviews"`
	Cursor  string           `json:"cursor"`
}
