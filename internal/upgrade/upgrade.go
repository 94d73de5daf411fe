package upgrade

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"

	"github.com/conneroisu/loam/internal/errors"
)

const (
	// lastCheckedKey is the fixed store key holding the epoch-millisecond
	// timestamp of the most recent upgrade check.
	lastCheckedKey = "upgrade.last_checked"

	// checkInterval is how long a recorded check suppresses further
	// network lookups.
	checkInterval = 24 * time.Hour

	// localVersion marks an untagged local build that never checks.
	localVersion = "dev"

	// devPrefix marks development-line builds identified by commit.
	devPrefix = "dev-"

	defaultVersionsURL = "https://conneroisu.github.io/loam/latest.json"
	defaultCommitsURL  = "https://api.github.com/repos/conneroisu/loam/commits?per_page=1"

	defaultTimeout = 10 * time.Second
)

// Fixed upgrade invocations printed with an available upgrade.
const (
	StableUpgradeCommand      = "go install github.com/conneroisu/loam@latest"
	DevelopmentUpgradeCommand = "go install github.com/conneroisu/loam@main"
)

// VersionInfo describes an available upgrade.
type VersionInfo struct {
	Current string `json:"current"`
	Latest  string `json:"latest"`
	Command string `json:"command"`
}

// Config configures a Checker. Zero fields fall back to defaults.
type Config struct {
	// Current is the running build's version identifier.
	Current string

	// Store persists the last-checked timestamp.
	Store Store

	// Client performs the metadata fetches.
	Client *http.Client

	// VersionsURL serves {"latest": "<version>"} for stable builds.
	VersionsURL string

	// CommitsURL serves [{"sha": "<hash>"}, ...] for development builds.
	CommitsURL string

	// Now supplies the clock, overridable in tests.
	Now func() time.Time
}

// Checker decides whether a newer build is available, remembering when it
// last asked so at most one network check happens per interval.
type Checker struct {
	current     string
	store       Store
	client      *http.Client
	versionsURL string
	commitsURL  string
	now         func() time.Time
}

// NewChecker creates a Checker from cfg.
func NewChecker(cfg *Config) *Checker {
	if cfg == nil {
		cfg = &Config{}
	}
	c := &Checker{
		current:     cfg.Current,
		store:       cfg.Store,
		client:      cfg.Client,
		versionsURL: cfg.VersionsURL,
		commitsURL:  cfg.CommitsURL,
		now:         cfg.Now,
	}
	if c.store == nil {
		c.store = NewMemoryStore()
	}
	if c.client == nil {
		c.client = &http.Client{Timeout: defaultTimeout}
	}
	if c.versionsURL == "" {
		c.versionsURL = defaultVersionsURL
	}
	if c.commitsURL == "" {
		c.commitsURL = defaultCommitsURL
	}
	if c.now == nil {
		c.now = time.Now
	}
	return c
}

// Check returns upgrade details when a newer build exists, or nil when the
// build is current, the build is local, or a check already ran within the
// last interval. The last-checked timestamp is written before the fetch,
// so a failed fetch still suppresses retries until the window lapses.
// Network failures propagate to the caller.
func (c *Checker) Check(ctx context.Context) (*VersionInfo, error) {
	if c.current == "" || c.current == localVersion {
		return nil, nil
	}

	if c.checkedRecently() {
		return nil, nil
	}

	stamp := strconv.FormatInt(c.now().UnixMilli(), 10)
	if err := c.store.Set(lastCheckedKey, stamp); err != nil {
		return nil, err
	}

	if strings.HasPrefix(c.current, devPrefix) {
		return c.checkDevelopment(ctx)
	}
	return c.checkStable(ctx)
}

// checkedRecently reports whether a check ran inside the interval. A
// missing, unreadable or malformed timestamp counts as never checked.
func (c *Checker) checkedRecently() bool {
	value, ok, err := c.store.Get(lastCheckedKey)
	if err != nil || !ok {
		return false
	}
	ms, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return false
	}
	return c.now().Sub(time.UnixMilli(ms)) < checkInterval
}

func (c *Checker) checkStable(ctx context.Context) (*VersionInfo, error) {
	var payload struct {
		Latest string `json:"latest"`
	}
	if err := c.fetchJSON(ctx, c.versionsURL, &payload); err != nil {
		return nil, err
	}
	if payload.Latest == "" {
		return nil, errors.NewNetworkError(errors.ErrCodeFetchFailed,
			"version metadata missing latest field", nil)
	}

	if sameRelease(c.current, payload.Latest) {
		return nil, nil
	}
	return &VersionInfo{
		Current: c.current,
		Latest:  payload.Latest,
		Command: StableUpgradeCommand,
	}, nil
}

func (c *Checker) checkDevelopment(ctx context.Context) (*VersionInfo, error) {
	var commits []struct {
		SHA string `json:"sha"`
	}
	if err := c.fetchJSON(ctx, c.commitsURL, &commits); err != nil {
		return nil, err
	}
	if len(commits) == 0 || commits[0].SHA == "" {
		return nil, errors.NewNetworkError(errors.ErrCodeFetchFailed,
			"commit listing is empty", nil)
	}

	latest := commits[0].SHA
	if sameCommit(c.current, latest) {
		return nil, nil
	}
	return &VersionInfo{
		Current: c.current,
		Latest:  latest,
		Command: DevelopmentUpgradeCommand,
	}, nil
}

// fetchJSON performs a GET and decodes the JSON response into out.
func (c *Checker) fetchJSON(ctx context.Context, url string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return errors.ErrFetchFailed(url, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return errors.ErrFetchFailed(url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return errors.NewNetworkError(errors.ErrCodeFetchFailed,
			fmt.Sprintf("unexpected status %d from %s", resp.StatusCode, url), nil)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.ErrFetchFailed(url, err)
	}
	return nil
}

// sameRelease compares release versions, tolerating a leading v on either
// side. Strings that do not parse as semantic versions compare literally.
func sameRelease(current, latest string) bool {
	cv, cerr := semver.NewVersion(current)
	lv, lerr := semver.NewVersion(latest)
	if cerr == nil && lerr == nil {
		return cv.Equal(lv)
	}
	return current == latest
}

// sameCommit reports whether a dev-<sha> build matches the fetched commit
// hash, comparing however many hash characters the build carries.
func sameCommit(current, sha string) bool {
	short := strings.TrimPrefix(current, devPrefix)
	if short == "" || len(short) > len(sha) {
		return false
	}
	return strings.HasPrefix(sha, short)
}
