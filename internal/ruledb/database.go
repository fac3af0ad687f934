package ruledb

import (
	"encoding/hex"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"golang.org/x/crypto/blake2b"

	pmaerrors "pma/internal/errors"
)

// Database loads and composes rule sets from a rule database directory:
//
//	<root>/php-changes/<from>-to-<to>.json
//	<root>/platforms/<platform>/deprecated-functions.json
//
// A Database is scoped to one analysis run. Loaded hops, composed ranges and
// platform sets are memoized for its lifetime only.
type Database struct {
	root     string
	versions []string
	index    map[string]int
	logger   *slog.Logger

	mu        sync.Mutex
	hops      map[string]*hop
	composed  map[string]*VersionRuleSet
	platforms map[string]*PlatformRuleSet
}

type hop struct {
	set    *VersionRuleSet
	digest []byte
}

// New creates a run-scoped database. versions is the strict ordering of known
// versions; duplicate entries keep their first position.
func New(root string, versions []string, logger *slog.Logger) *Database {
	index := make(map[string]int, len(versions))
	ordered := make([]string, 0, len(versions))
	for _, v := range versions {
		if _, dup := index[v]; dup || v == "" {
			continue
		}
		index[v] = len(ordered)
		ordered = append(ordered, v)
	}

	return &Database{
		root:      root,
		versions:  ordered,
		index:     index,
		logger:    logger,
		hops:      make(map[string]*hop),
		composed:  make(map[string]*VersionRuleSet),
		platforms: make(map[string]*PlatformRuleSet),
	}
}

// Root returns the database directory.
func (db *Database) Root() string {
	return db.root
}

// Versions returns the known version ordering.
func (db *Database) Versions() []string {
	out := make([]string, len(db.versions))
	copy(out, db.versions)
	return out
}

// CheckRange returns a VERSION_RANGE_INVALID error when from or to is unknown
// or from does not precede to.
func (db *Database) CheckRange(from, to string) error {
	fi, okFrom := db.index[from]
	ti, okTo := db.index[to]
	switch {
	case !okFrom:
		return pmaerrors.Newf(pmaerrors.VersionRangeInvalid, "unknown version %q", from)
	case !okTo:
		return pmaerrors.Newf(pmaerrors.VersionRangeInvalid, "unknown version %q", to)
	case fi >= ti:
		return pmaerrors.Newf(pmaerrors.VersionRangeInvalid, "version %s does not precede %s", from, to)
	}
	return nil
}

// ComposeVersionRules returns the rules for upgrading from -> to: every
// adjacent hop in the range, concatenated per category in version order.
// An invalid range yields an empty set, not an error. A missing or
// malformed hop file contributes nothing.
func (db *Database) ComposeVersionRules(from, to string) *VersionRuleSet {
	key := from + "->" + to

	db.mu.Lock()
	defer db.mu.Unlock()

	if set, ok := db.composed[key]; ok {
		return set
	}

	set := &VersionRuleSet{From: from, To: to}
	if err := db.CheckRange(from, to); err != nil {
		db.logger.Debug("No rules for version range", "from", from, "to", to, "reason", err.Error())
		db.composed[key] = set
		return set
	}

	h, _ := blake2b.New256(nil)
	h.Write([]byte(key))
	for i := db.index[from]; i < db.index[to]; i++ {
		hp := db.loadHop(db.versions[i], db.versions[i+1])
		set.append(hp.set)
		h.Write(hp.digest)
	}
	set.Fingerprint = hex.EncodeToString(h.Sum(nil))

	db.composed[key] = set
	return set
}

// loadHop must be called with db.mu held.
func (db *Database) loadHop(from, to string) *hop {
	key := from + "->" + to
	if hp, ok := db.hops[key]; ok {
		return hp
	}

	hp := &hop{set: &VersionRuleSet{From: from, To: to}}
	db.hops[key] = hp

	path := hopPath(db.root, from, to)
	if path == "" {
		db.logger.Warn("Rule file missing for version hop", "from", from, "to", to)
		return hp
	}

	var raw rawVersionFile
	digest, err := readRuleFile(path, &raw)
	if err != nil {
		db.logger.Warn("Skipping unreadable rule file", "path", path, "error", err.Error())
		return hp
	}

	hp.set = raw.build(from, to)
	hp.digest = digest
	db.logInvalidVersionRules(path, hp.set)
	db.logger.Debug("Loaded version hop", "from", from, "to", to, "rules", hp.set.Len())
	return hp
}

func (db *Database) logInvalidVersionRules(path string, set *VersionRuleSet) {
	for _, r := range set.RemovedFunctions {
		if r.Err != nil {
			db.logger.Warn("Invalid regex, rule limited to structural detection", "path", path, "rule", r.ID(), "error", r.Err.Error())
		}
	}
	for _, r := range set.DeprecatedFeatures {
		if r.Err != nil {
			db.logger.Warn("Invalid regex, rule skipped", "path", path, "rule", r.ID(), "error", r.Err.Error())
		}
	}
	for _, r := range set.BehaviorChanges {
		if r.Err != nil {
			db.logger.Warn("Invalid regex, rule skipped", "path", path, "rule", r.ID(), "error", r.Err.Error())
		}
	}
}

// PlatformRules returns the deprecation rules for platform. Unknown
// platforms yield an empty set.
func (db *Database) PlatformRules(platform string) *PlatformRuleSet {
	db.mu.Lock()
	defer db.mu.Unlock()

	if set, ok := db.platforms[platform]; ok {
		return set
	}

	set := &PlatformRuleSet{Platform: platform}
	db.platforms[platform] = set

	path := ""
	if platform != "" && filepath.Base(platform) == platform {
		path = platformPath(db.root, platform)
	}
	if path == "" {
		db.logger.Warn("No deprecated function data for platform", "platform", platform)
		return set
	}

	var raw rawPlatformFile
	digest, err := readRuleFile(path, &raw)
	if err != nil {
		db.logger.Warn("Skipping unreadable platform rule file", "path", path, "error", err.Error())
		return set
	}

	loaded := raw.build(platform)
	loaded.Fingerprint = hex.EncodeToString(digest)
	for _, r := range loaded.Functions {
		if r.Err != nil {
			db.logger.Warn("Invalid regex, rule skipped", "path", path, "rule", r.ID(), "error", r.Err.Error())
		}
	}
	db.platforms[platform] = loaded
	return loaded
}

// Platforms lists the platform directories that carry a rule file, sorted.
func (db *Database) Platforms() []string {
	entries, err := os.ReadDir(filepath.Join(db.root, platformDir))
	if err != nil {
		return nil
	}

	var out []string
	for _, e := range entries {
		if e.IsDir() && platformPath(db.root, e.Name()) != "" {
			out = append(out, e.Name())
		}
	}
	sort.Strings(out)
	return out
}
