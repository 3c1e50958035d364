package models

import (
	_ "embed"
	"errors"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yml
var catalogYAML []byte

// TopicDefinition is a catalog entry for a topic.
type TopicDefinition struct {
	Name string `yaml:"name" json:"name"`
	Icon string `yaml:"icon" json:"icon"`
}

// Topic is a derived statistic: how many confessions carry a topic.
type Topic struct {
	Name  string `json:"name"`
	Icon  string `json:"icon"`
	Count int    `json:"count"`
}

// CommunityStats are the headline numbers for the whole community.
// TotalConnections counts confessions filed under a topic, the same total
// as summing every topic's count.
type CommunityStats struct {
	TotalConfessions int64 `json:"total_confessions"`
	TotalUsers       int64 `json:"total_users"`
	TotalConnections int64 `json:"total_connections"`
}

// Catalog holds the closed lists a confession is validated against.
type Catalog struct {
	FallbackIcon string            `yaml:"fallback_icon" json:"fallback_icon"`
	Topics       []TopicDefinition `yaml:"topics" json:"topics"`
	Tags         []string          `yaml:"tags" json:"tags"`
	Moods        []string          `yaml:"moods" json:"moods"`
}

var (
	defaultCatalog     *Catalog
	defaultCatalogOnce sync.Once
)

// DefaultCatalog returns the embedded catalog. It panics if the embedded
// document is malformed, which only a broken build can cause.
func DefaultCatalog() *Catalog {
	defaultCatalogOnce.Do(func() {
		c, err := ParseCatalog(catalogYAML)
		if err != nil {
			panic(fmt.Sprintf("models: embedded catalog: %v", err))
		}
		defaultCatalog = c
	})
	return defaultCatalog
}

// ParseCatalog decodes and checks a catalog document.
func ParseCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	if c.FallbackIcon == "" {
		return nil, errors.New("catalog has no fallback_icon")
	}
	seen := make(map[string]struct{}, len(c.Topics))
	for _, t := range c.Topics {
		if t.Name == "" || t.Icon == "" {
			return nil, fmt.Errorf("catalog topic %q is incomplete", t.Name)
		}
		if _, dup := seen[t.Name]; dup {
			return nil, fmt.Errorf("catalog topic %q is listed twice", t.Name)
		}
		seen[t.Name] = struct{}{}
	}
	return &c, nil
}

// IconFor returns the catalog icon for topic, or the fallback icon.
func (c *Catalog) IconFor(topic string) string {
	for _, t := range c.Topics {
		if t.Name == topic {
			return t.Icon
		}
	}
	return c.FallbackIcon
}

// IsTag reports whether tag is in the catalog.
func (c *Catalog) IsTag(tag string) bool {
	return contains(c.Tags, tag)
}

// IsMood reports whether mood is in the catalog.
func (c *Catalog) IsMood(mood string) bool {
	return contains(c.Moods, mood)
}

// DefaultTopics returns every catalog topic with a zero count.
func (c *Catalog) DefaultTopics() []Topic {
	out := make([]Topic, 0, len(c.Topics))
	for _, t := range c.Topics {
		out = append(out, Topic{Name: t.Name, Icon: t.Icon})
	}
	return out
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
