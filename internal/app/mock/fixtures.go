package mock

import (
	"strings"
	"sync"
	"time"

	"vibecheck/internal/pkg/randx"
)

const (
	// FixturePassword is the only password the mock identity service accepts.
	FixturePassword = "password123"

	// AdminEmail is issued the ADMIN role by the mock identity service.
	AdminEmail = "admin@vibecheck.dev"

	// TakenEmail is rejected by mock registration as already registered.
	TakenEmail = "taken@example.com"
)

// userRecord mirrors the identity service's user representation.
type userRecord struct {
	ID        string    `json:"id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name,omitempty"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// fixtureEpoch keeps created_at stable across mock responses.
var fixtureEpoch = time.Date(2024, time.January, 15, 9, 30, 0, 0, time.UTC)

func newUserRecord(email, firstName, lastName string) userRecord {
	role := "USER"
	if email == AdminEmail {
		role = "ADMIN"
	}
	if firstName == "" {
		firstName = localPart(email)
	}
	return userRecord{
		ID:        randx.UserID(email),
		FirstName: firstName,
		LastName:  lastName,
		Email:     email,
		Role:      role,
		CreatedAt: fixtureEpoch,
	}
}

// accountBook holds the user records created by registration, keyed by lowercased email.
type accountBook struct {
	mu      sync.RWMutex
	records map[string]userRecord
}

func newAccountBook() *accountBook {
	return &accountBook{records: make(map[string]userRecord)}
}

func (b *accountBook) remember(record userRecord) {
	if b == nil {
		return
	}
	b.mu.Lock()
	b.records[strings.ToLower(record.Email)] = record
	b.mu.Unlock()
}

// lookup returns the registered record for email, or the record derived from the email alone.
func (b *accountBook) lookup(email string) userRecord {
	if b != nil {
		b.mu.RLock()
		record, ok := b.records[strings.ToLower(email)]
		b.mu.RUnlock()
		if ok {
			return record
		}
	}
	return newUserRecord(email, "", "")
}

func localPart(email string) string {
	for i := 0; i < len(email); i++ {
		if email[i] == '@' {
			return email[:i]
		}
	}
	return email
}

// preferenceRecord is the body of GET/PUT /users/preferences.
type preferenceRecord struct {
	Acoustics    int      `json:"acoustics"`
	Lighting     int      `json:"lighting"`
	Crowdedness  int      `json:"crowdedness"`
	Budget       int      `json:"budget"`
	Restrictions []string `json:"restrictions"`
}

var defaultPreferences = preferenceRecord{
	Acoustics:    50,
	Lighting:     50,
	Crowdedness:  50,
	Budget:       50,
	Restrictions: []string{},
}

type vibeBreakdown struct {
	Acoustics   int `json:"acoustics"`
	Lighting    int `json:"lighting"`
	Crowdedness int `json:"crowdedness"`
	Budget      int `json:"budget"`
}

type placeAnalysis struct {
	ID          string        `json:"id"`
	PlaceName   string        `json:"place_name"`
	Address     string        `json:"address"`
	Rating      float64       `json:"rating"`
	VibeScore   float64       `json:"vibe_score"`
	Summary     string        `json:"summary"`
	Tags        []string      `json:"tags"`
	Breakdown   vibeBreakdown `json:"breakdown"`
	ReviewCount int           `json:"review_count"`
	Latitude    float64       `json:"lat"`
	Longitude   float64       `json:"lng"`
}

var cafeAnalysis = placeAnalysis{
	PlaceName:   "Kopi Lane Roasters",
	Address:     "12 Harbour Street",
	Rating:      4.6,
	VibeScore:   8.7,
	Summary:     "Calm mornings, soft lighting, and a reliable crowd of laptop workers after ten.",
	Tags:        []string{"quiet", "wifi", "specialty coffee"},
	Breakdown:   vibeBreakdown{Acoustics: 82, Lighting: 74, Crowdedness: 40, Budget: 55},
	ReviewCount: 412,
	Latitude:    1.2834,
	Longitude:   103.8607,
}

var bistroAnalysis = placeAnalysis{
	PlaceName:   "Maison Verte",
	Address:     "88 Orchard Row",
	Rating:      4.3,
	VibeScore:   7.1,
	Summary:     "Lively dinner service with dim, warm lighting; bookings recommended on weekends.",
	Tags:        []string{"date night", "wine", "busy"},
	Breakdown:   vibeBreakdown{Acoustics: 45, Lighting: 88, Crowdedness: 78, Budget: 30},
	ReviewCount: 967,
	Latitude:    1.3048,
	Longitude:   103.8318,
}

type placeComparison struct {
	Places  []placeAnalysis `json:"places"`
	Winner  string          `json:"winner"`
	Verdict string          `json:"verdict"`
}

type recommendation struct {
	Place  placeAnalysis `json:"place"`
	Match  int           `json:"match"`
	Reason string        `json:"reason"`
}

type proAnalysis struct {
	Query           string           `json:"query"`
	Interpretation  string           `json:"interpretation"`
	Recommendations []recommendation `json:"recommendations"`
}
