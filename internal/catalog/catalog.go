// Package catalog loads and serves the static space catalog: the set of
// named spaces a robot or human may join, their capacity, and which
// robot ids are authorized to embody each space.
package catalog

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	yaml "github.com/goccy/go-yaml"
	"k8s.io/utils/set"
)

var idPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// rawSpace mirrors the on-disk YAML shape of one space entry.
type rawSpace struct {
	ID              string   `yaml:"id"`
	DisplayName     string   `yaml:"display_name"`
	Description     string   `yaml:"description"`
	ImageURL        string   `yaml:"image_url"`
	MaxParticipants int      `yaml:"max_participants"`
	Enabled         bool     `yaml:"enabled"`
	RobotIDs        []string `yaml:"robot_ids"`
}

type rawCatalog struct {
	Version         string     `yaml:"version"`
	DefaultImageURL string     `yaml:"default_image_url"`
	Spaces          []rawSpace `yaml:"spaces"`
}

// Space is one immutable, validated space catalog entry.
type Space struct {
	ID              string
	DisplayName     string
	Description     string
	ImageURL        string
	MaxParticipants int
	Enabled         bool
	AuthorizedRobot set.Set[string]
}

// Catalog is the immutable, read-only-after-load set of configured spaces.
type Catalog struct {
	Version         string
	DefaultImageURL string
	spaces          map[string]Space
	order           []string
}

// LoadCatalog reads and validates the space catalog YAML at path.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading space catalog: %w", err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, fmt.Errorf("space catalog %s is empty", path)
	}

	var raw rawCatalog
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing space catalog: %w", err)
	}

	var errs []string
	if raw.Version == "" {
		errs = append(errs, "catalog version is required")
	}

	seen := make(map[string]bool, len(raw.Spaces))
	spaces := make(map[string]Space, len(raw.Spaces))
	order := make([]string, 0, len(raw.Spaces))
	for _, rs := range raw.Spaces {
		if !idPattern.MatchString(rs.ID) {
			errs = append(errs, fmt.Sprintf("space id %q must be alphanumeric plus '-_'", rs.ID))
			continue
		}
		if seen[rs.ID] {
			errs = append(errs, fmt.Sprintf("duplicate space id %q", rs.ID))
			continue
		}
		if rs.MaxParticipants < 2 || rs.MaxParticipants > 10 {
			errs = append(errs, fmt.Sprintf("space %q max_participants must be in [2,10] (got %d)", rs.ID, rs.MaxParticipants))
			continue
		}
		seen[rs.ID] = true

		imageURL := rs.ImageURL
		if imageURL == "" {
			imageURL = raw.DefaultImageURL
		}

		spaces[rs.ID] = Space{
			ID:              rs.ID,
			DisplayName:     rs.DisplayName,
			Description:     rs.Description,
			ImageURL:        imageURL,
			MaxParticipants: rs.MaxParticipants,
			Enabled:         rs.Enabled,
			AuthorizedRobot: set.New(rs.RobotIDs...),
		}
		order = append(order, rs.ID)
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("invalid space catalog:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return &Catalog{
		Version:         raw.Version,
		DefaultImageURL: raw.DefaultImageURL,
		spaces:          spaces,
		order:           order,
	}, nil
}

// Get returns the space entry for id, if any.
func (c *Catalog) Get(id string) (Space, bool) {
	s, ok := c.spaces[id]
	return s, ok
}

// IsRobotAuthorized reports whether robotID may embody space spaceID.
func (c *Catalog) IsRobotAuthorized(spaceID, robotID string) bool {
	s, ok := c.spaces[spaceID]
	if !ok {
		return false
	}
	return s.AuthorizedRobot.Has(robotID)
}

// SpaceView is the public JSON shape of one catalog entry for GET /spaces.
type SpaceView struct {
	ID              string `json:"id"`
	DisplayName     string `json:"display_name"`
	Description     string `json:"description"`
	ImageURL        string `json:"image_url"`
	MaxParticipants int    `json:"max_participants"`
	Enabled         bool   `json:"enabled"`
}

// Response is the full JSON shape for GET /spaces.
type Response struct {
	Version string      `json:"version"`
	Spaces  []SpaceView `json:"spaces"`
}

// ToResponse serializes the catalog into the wire shape documented for GET /spaces.
func (c *Catalog) ToResponse() Response {
	views := make([]SpaceView, 0, len(c.order))
	for _, id := range c.order {
		s := c.spaces[id]
		views = append(views, SpaceView{
			ID:              s.ID,
			DisplayName:     s.DisplayName,
			Description:     s.Description,
			ImageURL:        s.ImageURL,
			MaxParticipants: s.MaxParticipants,
			Enabled:         s.Enabled,
		})
	}
	return Response{Version: c.Version, Spaces: views}
}
