package mock

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"vibecheck/internal/pkg/auth/jwt"
)

// call is one resolved request handed to a fixture.
type call struct {
	req        *http.Request
	body       []byte
	signingKey string
	accounts   *accountBook
}

type fixture func(c *call) (int, any)

type routeKey struct {
	method string
	path   string
}

type message struct {
	Message string `json:"message"`
}

type detail struct {
	Detail string `json:"detail"`
}

// fixturePasswordHash is computed once at package load.
var fixturePasswordHash, _ = bcrypt.GenerateFromPassword([]byte(FixturePassword), bcrypt.MinCost)

// routes is the mock route table. It is built at package load and never mutated.
var routes = map[routeKey]fixture{
	{http.MethodPost, "/users/token"}:       issueToken,
	{http.MethodPost, "/users"}:             registerUser,
	{http.MethodGet, "/users/me"}:           currentUser,
	{http.MethodGet, "/users/preferences"}:  getPreferences,
	{http.MethodPut, "/users/preferences"}:  putPreferences,
	{http.MethodPost, "/place/analyze"}:     analyzePlace,
	{http.MethodPost, "/place/compare"}:     comparePlaces,
	{http.MethodPost, "/place/pro_analyze"}: proAnalyze,
}

// notFound is the fallback for every unmatched (method, path).
func notFound() (int, any) {
	return http.StatusNotFound, message{Message: "Mock endpoint not found"}
}

func issueToken(c *call) (int, any) {
	form, err := url.ParseQuery(string(c.body))
	if err != nil {
		return http.StatusUnprocessableEntity, detail{Detail: "Invalid form body"}
	}

	email := strings.TrimSpace(form.Get("username"))
	password := form.Get("password")

	if email == "" || bcrypt.CompareHashAndPassword(fixturePasswordHash, []byte(password)) != nil {
		return http.StatusUnauthorized, detail{Detail: "Incorrect email or password"}
	}

	record := newUserRecord(email, "", "")
	token, err := jwt.GenerateToken(jwt.NewClaims(email, record.Role), c.signingKey, jwt.SessionExpiration)
	if err != nil {
		return http.StatusInternalServerError, detail{Detail: "Could not issue token"}
	}

	return http.StatusOK, map[string]string{
		"access_token": token,
		"token_type":   "bearer",
	}
}

type registration struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}

func registerUser(c *call) (int, any) {
	var in registration
	if err := json.Unmarshal(c.body, &in); err != nil || in.Email == "" || in.Password == "" {
		return http.StatusUnprocessableEntity, detail{Detail: "Email and password are required"}
	}

	if strings.EqualFold(in.Email, TakenEmail) {
		return http.StatusBadRequest, detail{Detail: "Email already registered"}
	}

	record := newUserRecord(in.Email, in.FirstName, in.LastName)
	c.accounts.remember(record)
	return http.StatusOK, record
}

func currentUser(c *call) (int, any) {
	claims, ok := c.bearerClaims()
	if !ok {
		return http.StatusUnauthorized, detail{Detail: "Not authenticated"}
	}
	return http.StatusOK, c.accounts.lookup(claims.Subject)
}

func getPreferences(c *call) (int, any) {
	if _, ok := c.bearerClaims(); !ok {
		return http.StatusUnauthorized, detail{Detail: "Not authenticated"}
	}
	return http.StatusOK, defaultPreferences
}

func putPreferences(c *call) (int, any) {
	if _, ok := c.bearerClaims(); !ok {
		return http.StatusUnauthorized, detail{Detail: "Not authenticated"}
	}

	merged := defaultPreferences
	merged.Restrictions = append([]string(nil), defaultPreferences.Restrictions...)
	if err := json.Unmarshal(c.body, &merged); err != nil {
		return http.StatusUnprocessableEntity, detail{Detail: "Invalid preferences body"}
	}
	if merged.Restrictions == nil {
		merged.Restrictions = []string{}
	}

	return http.StatusOK, merged
}

func analyzePlace(c *call) (int, any) {
	var in struct {
		Query string `json:"query"`
	}
	_ = json.Unmarshal(c.body, &in)

	out := withID(cafeAnalysis)
	if in.Query != "" {
		out.PlaceName = in.Query
	}
	return http.StatusOK, out
}

func comparePlaces(c *call) (int, any) {
	a, b := withID(cafeAnalysis), withID(bistroAnalysis)
	return http.StatusOK, placeComparison{
		Places:  []placeAnalysis{a, b},
		Winner:  a.ID,
		Verdict: a.PlaceName + " suits focused work; " + b.PlaceName + " suits a lively evening.",
	}
}

func proAnalyze(c *call) (int, any) {
	var in struct {
		Query string `json:"query"`
	}
	_ = json.Unmarshal(c.body, &in)

	return http.StatusOK, proAnalysis{
		Query:          in.Query,
		Interpretation: "Looking for a calm place with good light and moderate prices.",
		Recommendations: []recommendation{
			{Place: withID(cafeAnalysis), Match: 92, Reason: "Quiet before noon and bright window seating."},
			{Place: withID(bistroAnalysis), Match: 64, Reason: "Great lighting but gets loud after seven."},
		},
	}
}

func withID(p placeAnalysis) placeAnalysis {
	p.ID = analysisID()
	return p
}

// bearerClaims verifies the bearer token against the mock signing key.
func (c *call) bearerClaims() (*jwt.Claims, bool) {
	token, ok := jwt.BearerToken(c.req.Header)
	if !ok {
		return nil, false
	}

	claims, err := jwt.ParseToken(token, c.signingKey)
	if err != nil || claims.Subject == "" {
		return nil, false
	}

	return claims, true
}
