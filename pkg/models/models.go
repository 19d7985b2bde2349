package models

import (
	"fmt"
	"strings"
)

// Artwork is a title and image URL pair found on a gallery listing page
type Artwork struct {
	Title     string
	SourceURL string
	Page      int
	Flagged   bool // stored under a disambiguated title by the collect-all policy
}

// DuplicatePolicy decides what happens when a title is seen twice
type DuplicatePolicy string

const (
	// LastWins replaces the URL of the earlier occurrence; the entry keeps its
	// original position.
	LastWins DuplicatePolicy = "last-wins"
	// FirstWins keeps the earlier occurrence and drops the later one.
	FirstWins DuplicatePolicy = "first-wins"
	// CollectAll keeps every occurrence, storing later ones as "Title (n)".
	CollectAll DuplicatePolicy = "collect-all"
)

// ParseDuplicatePolicy converts a string to a DuplicatePolicy
func ParseDuplicatePolicy(s string) (DuplicatePolicy, error) {
	switch p := DuplicatePolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case LastWins, FirstWins, CollectAll:
		return p, nil
	case "":
		return LastWins, nil
	default:
		return "", fmt.Errorf("unknown duplicate policy: %q", s)
	}
}

// Duplicate records a title that appeared more than once
type Duplicate struct {
	Title       string
	EarlierURL  string
	LaterURL    string
	StoredTitle string // collect-all only
}

// Collection is an insertion-ordered title to artwork mapping
type Collection struct {
	policy     DuplicatePolicy
	items      []Artwork
	index      map[string]int
	duplicates []Duplicate
}

// NewCollection creates an empty collection using the given policy
func NewCollection(policy DuplicatePolicy) *Collection {
	if policy == "" {
		policy = LastWins
	}
	return &Collection{
		policy: policy,
		index:  make(map[string]int),
	}
}

// Policy returns the duplicate policy of the collection
func (c *Collection) Policy() DuplicatePolicy {
	return c.policy
}

// Add inserts an artwork, applying the duplicate policy when the title already
// exists. It reports whether the collection gained a new entry.
func (c *Collection) Add(a Artwork) bool {
	added, _ := c.Insert(a)
	return added
}

// Insert is Add that also returns the duplicate the artwork caused, or nil
// when its title was new.
func (c *Collection) Insert(a Artwork) (bool, *Duplicate) {
	i, exists := c.index[a.Title]
	if !exists {
		c.index[a.Title] = len(c.items)
		c.items = append(c.items, a)
		return true, nil
	}

	dup := Duplicate{
		Title:      a.Title,
		EarlierURL: c.items[i].SourceURL,
		LaterURL:   a.SourceURL,
	}

	added := false
	switch c.policy {
	case FirstWins:
	case CollectAll:
		stored := c.nextTitle(a.Title)
		dup.StoredTitle = stored
		a.Title = stored
		a.Flagged = true
		c.index[stored] = len(c.items)
		c.items = append(c.items, a)
		added = true
	default:
		c.items[i].SourceURL = a.SourceURL
		c.items[i].Page = a.Page
	}
	c.duplicates = append(c.duplicates, dup)
	return added, &dup
}

func (c *Collection) nextTitle(title string) string {
	for n := 2; ; n++ {
		candidate := fmt.Sprintf("%s (%d)", title, n)
		if _, taken := c.index[candidate]; !taken {
			return candidate
		}
	}
}

// Len returns the number of entries
func (c *Collection) Len() int {
	return len(c.items)
}

// Artworks returns a copy of the entries in insertion order
func (c *Collection) Artworks() []Artwork {
	out := make([]Artwork, len(c.items))
	copy(out, c.items)
	return out
}

// Lookup returns the entry stored under title
func (c *Collection) Lookup(title string) (Artwork, bool) {
	i, ok := c.index[title]
	if !ok {
		return Artwork{}, false
	}
	return c.items[i], true
}

// URL returns the source URL stored under title, or "" if absent
func (c *Collection) URL(title string) string {
	a, _ := c.Lookup(title)
	return a.SourceURL
}

// Duplicates returns every duplicate title seen, in encounter order
func (c *Collection) Duplicates() []Duplicate {
	out := make([]Duplicate, len(c.duplicates))
	copy(out, c.duplicates)
	return out
}
