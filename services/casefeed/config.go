package casefeed

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"casefeed/lib/configutil"
	"casefeed/lib/notify"
	"casefeed/lib/recency"
	"casefeed/lib/scrapers/orthobullets/core"
	"casefeed/lib/scrapers/orthobullets/detail"
	"casefeed/lib/scrapers/orthobullets/listing"

	"dario.cat/mergo"
)

const (
	DefaultListingUrl = "https://www.orthobullets.com/Site/ElasticSearch/StandardSearchTiles?contentType=5&s=1,2,3,225,6,7,10"
	DefaultFeedPath   = "dist/orthobullets_cases.xml"
	DefaultJsonPath   = "dist/orthobullets_cases.json"
	DefaultStatePath  = "dist/orthobullets_cases_seen.json"

	EnvEmail    = "CASEFEED_EMAIL"
	EnvPassword = "CASEFEED_PASSWORD"
)

var ErrMissingCredentials = fmt.Errorf(
	"missing credentials: set credentials.email and credentials.password or %s and %s",
	EnvEmail, EnvPassword,
)

type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type Selectors struct {
	Tile          string `json:"tile"`
	Anchor        string `json:"anchor"`
	DetailPattern string `json:"detail_pattern"`
}

type OutputConfig struct {
	Feed       string `json:"feed"`
	Structured string `json:"structured"`
}

// StateConfig selects the identity store, Database wins over File when
// both are set.
type StateConfig struct {
	File     string `json:"file"`
	Database string `json:"database"`
}

type SectionConfig struct {
	Keywords  []string `json:"keywords"`
	Label     string   `json:"label"`
	MaxBlocks int      `json:"max_blocks"`
	MaxChars  int      `json:"max_chars"`
}

type FeedConfig struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Link        string `json:"link"`
}

type Config struct {
	ListingUrl              string              `json:"listing_url"`
	Credentials             Credentials         `json:"credentials"`
	UserAgent               string              `json:"user_agent"`
	Selectors               Selectors           `json:"selectors"`
	Output                  OutputConfig        `json:"output"`
	State                   StateConfig         `json:"state"`
	Window                  configutil.Duration `json:"window"`
	MaxItems                int                 `json:"max_items"`
	IncludeUndated          bool                `json:"include_undated"`
	Verbose                 bool                `json:"verbose"`
	FetchTimeout            configutil.Duration `json:"fetch_timeout"`
	Section                 SectionConfig       `json:"section"`
	MaxBodyChars            int                 `json:"max_body_chars"`
	Feed                    FeedConfig          `json:"feed"`
	DisableCloudflareBypass bool                `json:"disable_cloudflare_bypass"`
	DebugHttpDir            string              `json:"debug_http_dir"`
	Timezone                string              `json:"timezone"`
	Notify                  notify.SmtpConfig   `json:"notify"`
}

func DefaultConfig() Config {
	return Config{
		ListingUrl: DefaultListingUrl,
		UserAgent:  core.DefaultUserAgent,
		Selectors: Selectors{
			Tile:          listing.DefaultTileSelector,
			Anchor:        listing.DefaultAnchorSelector,
			DetailPattern: regexp.QuoteMeta(listing.DefaultDetailPattern),
		},
		Output: OutputConfig{
			Feed:       DefaultFeedPath,
			Structured: DefaultJsonPath,
		},
		State: StateConfig{
			File: DefaultStatePath,
		},
		Window:       configutil.Duration(recency.DefaultWindow),
		MaxItems:     listing.DefaultMaxItems,
		FetchTimeout: configutil.Duration(core.DefaultTimeout),
		Section: SectionConfig{
			Keywords:  detail.DefaultSectionKeywords,
			Label:     "Treatment",
			MaxBlocks: detail.DefaultSectionMaxBlocks,
			MaxChars:  detail.DefaultSectionMaxChars,
		},
		MaxBodyChars: detail.DefaultMaxBodyChars,
		Feed: FeedConfig{
			Title:       "Orthobullets Cases (Login)",
			Description: "Recent Orthobullets cases with author, treatment notes and images (login session).",
		},
	}
}

// LoadConfig reads path (and its .local override) when it exists, then
// applies environment overrides and defaults. A missing file is not an
// error, the config may come entirely from the environment.
func LoadConfig(path string) (Config, error) {
	config, err := configutil.ReadConfig[Config](path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	config.ApplyEnv(os.Getenv)
	err = config.ApplyDefaults()
	if err != nil {
		return Config{}, err
	}
	return config, config.Validate()
}

func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := strings.TrimSpace(getenv(EnvEmail)); v != "" {
		c.Credentials.Email = v
	}
	if v := getenv(EnvPassword); v != "" {
		c.Credentials.Password = v
	}
}

func (c *Config) ApplyDefaults() error {
	err := mergo.Merge(c, DefaultConfig())
	if err != nil {
		return err
	}
	if c.Feed.Link == "" {
		c.Feed.Link = c.ListingUrl
	}
	return nil
}

func (c Config) Validate() error {
	if c.Credentials.Email == "" || c.Credentials.Password == "" {
		return ErrMissingCredentials
	}
	if _, err := regexp.Compile(c.Selectors.DetailPattern); err != nil {
		return fmt.Errorf("invalid selectors.detail_pattern: %w", err)
	}
	if c.Window.Std() <= 0 {
		return fmt.Errorf("window must be positive, got %s", c.Window)
	}
	if c.Timezone != "" {
		if _, err := time.LoadLocation(c.Timezone); err != nil {
			return fmt.Errorf("invalid timezone: %w", err)
		}
	}
	if c.MaxItems <= 0 {
		return fmt.Errorf("max_items must be positive, got %d", c.MaxItems)
	}
	return nil
}

func (c Config) listingOptions() listing.Options {
	return listing.Options{
		TileSelector:   c.Selectors.Tile,
		AnchorSelector: c.Selectors.Anchor,
		DetailPattern:  regexp.MustCompile(c.Selectors.DetailPattern),
		MaxItems:       c.MaxItems,
	}
}

func (c Config) detailOptions() detail.Options {
	return detail.Options{
		SectionKeywords:  c.Section.Keywords,
		SectionMaxBlocks: c.Section.MaxBlocks,
		SectionMaxChars:  c.Section.MaxChars,
		MaxBodyChars:     c.MaxBodyChars,
	}
}

func (c Config) ClientOptions() core.ClientOptions {
	return core.ClientOptions{
		Email:            c.Credentials.Email,
		Password:         c.Credentials.Password,
		UserAgent:        c.UserAgent,
		Timeout:          time.Duration(c.FetchTimeout),
		BypassCloudflare: !c.DisableCloudflareBypass,
	}
}
