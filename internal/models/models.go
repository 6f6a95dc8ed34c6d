package models

import "time"

// ReviewStatus is the lifecycle state the upstream platform assigns to
// compliance reports and proof uploads.
type ReviewStatus string

const (
	StatusPending  ReviewStatus = "Pending"
	StatusApproved ReviewStatus = "Approved"
)

const (
	RoleUser       = "user"
	RoleGovernment = "government"
)

// User is the profile snapshot returned by the upstream API. The gateway
// never owns it: it caches the latest copy per session and rewrites the cache
// whenever the upstream answers with a fresh one.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
	Points   int    `json:"points"`
}

func (u User) IsGovernment() bool { return u.Role == RoleGovernment }

type ComplianceResult struct {
	RequiredTrees int  `json:"required_trees"`
	DeltaTrees    int  `json:"delta_trees"`
	Compliant     bool `json:"compliant"`
}

type ComplianceReport struct {
	ID            string           `json:"id"`
	UserID        string           `json:"user_id"`
	Username      string           `json:"username"`
	ProjectName   string           `json:"project_name"`
	SpeciesChoice string           `json:"species_choice"`
	AreaSqm       float64          `json:"area_sqm"`
	TreesPlanned  int              `json:"trees_planned"`
	GreenAreaSqm  *float64         `json:"green_area_sqm,omitempty"`
	Lat           float64          `json:"lat"`
	Lon           float64          `json:"lon"`
	Status        ReviewStatus     `json:"status"`
	Result        ComplianceResult `json:"result"`
}

type ComplianceRequest struct {
	ProjectName   string   `json:"project_name"`
	AreaSqm       float64  `json:"area_sqm"`
	TreesPlanned  int      `json:"trees_planned"`
	GreenAreaSqm  *float64 `json:"green_area_sqm"`
	SpeciesChoice string   `json:"species_choice"`
	Lat           float64  `json:"lat"`
	Lon           float64  `json:"lon"`
}

type UploadProof struct {
	ID            string       `json:"id"`
	UserID        string       `json:"user_id"`
	Filename      string       `json:"filename"`
	Status        ReviewStatus `json:"status"`
	PointsAwarded int          `json:"points_awarded"`
	URL           string       `json:"url,omitempty"`
}

// Recommendation mirrors the upstream species/density guidance payload.
// It is ephemeral: derived per query, never persisted by the gateway.
type Recommendation struct {
	Input struct {
		Lat     float64 `json:"lat"`
		Lon     float64 `json:"lon"`
		AreaSqm float64 `json:"area_sqm"`
		NDVI    float64 `json:"ndvi"`
	} `json:"input"`
	Recommendation struct {
		Species           []string `json:"species"`
		DensityPerHectare int      `json:"density_per_hectare"`
		Pattern           string   `json:"pattern"`
	} `json:"recommendation"`
	PreferredByClimate struct {
		ClimateBand string   `json:"climate_band"`
		Species     []string `json:"species"`
	} `json:"preferred_by_climate"`
}

type LeaderboardEntry struct {
	Username string `json:"username"`
	Points   int    `json:"points"`
}

// Voucher is a static catalog entry; the upstream re-validates cost on
// redemption, the local value only drives affordability checks.
type Voucher struct {
	ID    string `json:"id"`
	Brand string `json:"brand"`
	Value int    `json:"value"`
	Desc  string `json:"desc"`
}

// Session is one gateway login. TokenHash indexes the cookie token,
// UpstreamSecret holds the sealed upstream bearer token, UserJSON the cached
// profile snapshot.
type Session struct {
	ID             string
	TokenHash      string
	UpstreamSecret string
	UserJSON       string
	ExpiresAt      time.Time
	IdleExpiresAt  time.Time
	CreatedAt      time.Time
	LastSeenAt     time.Time
	RevokedAt      *time.Time
}

// Redemption is the gateway-side journal entry for a voucher redemption
// attempt. Status records the state machine's terminal state.
type Redemption struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	VoucherID string    `json:"voucher_id"`
	Brand     string    `json:"brand"`
	Cost      int       `json:"cost"`
	Code      string    `json:"code,omitempty"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

type ActivityEntry struct {
	ID           string    `json:"id"`
	Actor        string    `json:"actor"`
	Action       string    `json:"action"`
	Target       string    `json:"target"`
	MetadataJSON string    `json:"metadata_json"`
	CreatedAt    time.Time `json:"created_at"`
}
