package prefsync

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// Slider bounds.
const (
	MinValue = 0
	MaxValue = 100

	// maxRestrictionLen bounds one free-text restriction tag.
	maxRestrictionLen = 64
)

var (
	// ErrNotLoaded is returned by edits issued before the remote preferences were fetched.
	ErrNotLoaded = errors.New("preferences not loaded")

	// ErrOutOfRange is returned for slider values outside MinValue..MaxValue.
	ErrOutOfRange = errors.New("preference value out of range")

	// ErrUnknownField is returned for edits addressed to a field that does not exist.
	ErrUnknownField = errors.New("unknown preference field")

	// ErrInvalidRestriction is returned for empty or oversized restriction tags.
	ErrInvalidRestriction = errors.New("invalid restriction tag")

	// ErrClosed is returned by edits on a closed Synchronizer.
	ErrClosed = errors.New("synchronizer closed")

	// ErrNoCredential is returned when a Synchronizer is requested without a verified owner token.
	ErrNoCredential = errors.New("preference owner not verified")
)

// UnknownFieldError names the field an edit addressed. It matches ErrUnknownField.
type UnknownFieldError struct {
	Field string
}

func (e *UnknownFieldError) Error() string {
	return fmt.Sprintf("%v: %q", ErrUnknownField, e.Field)
}

func (e *UnknownFieldError) Is(target error) bool { return target == ErrUnknownField }

// Field names a slider.
type Field string

const (
	FieldAcoustics   Field = "acoustics"
	FieldLighting    Field = "lighting"
	FieldCrowdedness Field = "crowdedness"
	FieldBudget      Field = "budget"
)

// ParseField validates a slider name.
func ParseField(s string) (Field, error) {
	switch f := Field(strings.ToLower(strings.TrimSpace(s))); f {
	case FieldAcoustics, FieldLighting, FieldCrowdedness, FieldBudget:
		return f, nil
	default:
		return "", &UnknownFieldError{Field: s}
	}
}

// Preferences is the full preference set of one user.
type Preferences struct {
	Acoustics    int      `json:"acoustics"`
	Lighting     int      `json:"lighting"`
	Crowdedness  int      `json:"crowdedness"`
	Budget       int      `json:"budget"`
	Restrictions []string `json:"restrictions"`
}

// Clone returns a deep copy.
func (p Preferences) Clone() Preferences {
	cp := p
	cp.Restrictions = slices.Clone(p.Restrictions)
	if cp.Restrictions == nil {
		cp.Restrictions = []string{}
	}
	return cp
}

// Equal reports value equality. Restriction order matters.
func (p Preferences) Equal(o Preferences) bool {
	return p.Acoustics == o.Acoustics &&
		p.Lighting == o.Lighting &&
		p.Crowdedness == o.Crowdedness &&
		p.Budget == o.Budget &&
		slices.Equal(p.Restrictions, o.Restrictions)
}

func (p *Preferences) slider(f Field) *int {
	switch f {
	case FieldAcoustics:
		return &p.Acoustics
	case FieldLighting:
		return &p.Lighting
	case FieldCrowdedness:
		return &p.Crowdedness
	case FieldBudget:
		return &p.Budget
	default:
		return nil
	}
}

// Patch is a partial edit. Nil fields are left untouched.
type Patch struct {
	Acoustics    *int      `json:"acoustics,omitempty"`
	Lighting     *int      `json:"lighting,omitempty"`
	Crowdedness  *int      `json:"crowdedness,omitempty"`
	Budget       *int      `json:"budget,omitempty"`
	Restrictions *[]string `json:"restrictions,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p Patch) Empty() bool {
	return p.Acoustics == nil && p.Lighting == nil && p.Crowdedness == nil && p.Budget == nil && p.Restrictions == nil
}

func (p Patch) sliders() map[Field]*int {
	return map[Field]*int{
		FieldAcoustics:   p.Acoustics,
		FieldLighting:    p.Lighting,
		FieldCrowdedness: p.Crowdedness,
		FieldBudget:      p.Budget,
	}
}

// Validate checks every field of the patch without applying it.
func (p Patch) Validate() error {
	for field, v := range p.sliders() {
		if v != nil {
			if err := checkRange(field, *v); err != nil {
				return err
			}
		}
	}
	if p.Restrictions != nil {
		for _, tag := range *p.Restrictions {
			if _, err := normalizeTag(tag); err != nil {
				return err
			}
		}
	}
	return nil
}

func (p Patch) applyTo(prefs *Preferences) {
	for field, v := range p.sliders() {
		if v != nil {
			*prefs.slider(field) = *v
		}
	}
	if p.Restrictions != nil {
		tags := make([]string, 0, len(*p.Restrictions))
		for _, tag := range *p.Restrictions {
			tag, _ = normalizeTag(tag)
			if !slices.Contains(tags, tag) {
				tags = append(tags, tag)
			}
		}
		prefs.Restrictions = tags
	}
}

func checkRange(field Field, value int) error {
	if value < MinValue || value > MaxValue {
		return fmt.Errorf("%w: %s=%d", ErrOutOfRange, field, value)
	}
	return nil
}

func normalizeTag(tag string) (string, error) {
	tag = strings.TrimSpace(tag)
	if tag == "" || len(tag) > maxRestrictionLen {
		return "", fmt.Errorf("%w: %q", ErrInvalidRestriction, tag)
	}
	return tag, nil
}
