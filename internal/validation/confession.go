// Package validation checks and normalizes user submissions before any store call.
package validation

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"

	"unheard/internal/models"
)

// Submission limits.
const (
	MinConfessionWords    = 10
	MaxConfessionChars    = 200
	MaxCommentChars       = 500
	MaxTopicChars         = 64
	MaxUsernameChars      = 64
	deviceIDPrefixForName = 6
)

// Avatar settings.
const (
	avatarHost         = "api.dicebear.com"
	avatarVersion      = "7.x"
	defaultAvatarStyle = "avataaars"
	// DefaultAvatar replaces an avatar URL that is not an approved DiceBear style.
	DefaultAvatar = "https://api.dicebear.com/7.x/avataaars/svg?seed=default"
)

var approvedAvatarStyles = map[string]struct{}{
	"avataaars": {},
	"pixel-art": {},
	"identicon": {},
	"bottts":    {},
	"micah":     {},
}

// ConfessionFields are the author-supplied parts of a confession.
type ConfessionFields struct {
	Text      string
	Tags      []string
	Username  string
	Mood      string
	Topic     string
	Anonymous bool
}

// CountWords counts whitespace-separated words.
func CountWords(text string) int {
	return len(strings.Fields(text))
}

// ValidateConfessionText checks a confession body: at least MinConfessionWords
// words and at most MaxConfessionChars characters.
func ValidateConfessionText(text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", models.NewValidationError("Confession text is required")
	}
	if n := CountWords(text); n < MinConfessionWords {
		return "", models.NewValidationError(
			fmt.Sprintf("Confession must have at least %d words (got %d)", MinConfessionWords, n))
	}
	if utf8.RuneCountInString(text) > MaxConfessionChars {
		return "", models.NewValidationError(
			fmt.Sprintf("Confession must be at most %d characters", MaxConfessionChars))
	}
	return text, nil
}

// NormalizeTags lowercases, prefixes with '#', deduplicates and checks every
// tag against the catalog. First-seen order is kept.
func NormalizeTags(catalog *models.Catalog, tags []string) ([]string, error) {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, raw := range tags {
		tag := strings.ToLower(strings.TrimSpace(raw))
		if tag == "" {
			continue
		}
		if !strings.HasPrefix(tag, "#") {
			tag = "#" + tag
		}
		if !catalog.IsTag(tag) {
			return nil, models.NewValidationError(fmt.Sprintf("Unknown tag %q", raw))
		}
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out, nil
}

// NormalizeMood returns the catalog mood or "" when none was chosen.
func NormalizeMood(catalog *models.Catalog, mood string) (string, error) {
	mood = strings.ToLower(strings.TrimSpace(mood))
	if mood == "" {
		return "", nil
	}
	if !catalog.IsMood(mood) {
		return "", models.NewValidationError(fmt.Sprintf("Unknown mood %q", mood))
	}
	return mood, nil
}

// NormalizeTopic trims the topic. Topics outside the catalog are allowed.
func NormalizeTopic(topic string) (string, error) {
	topic = strings.TrimSpace(topic)
	if utf8.RuneCountInString(topic) > MaxTopicChars {
		return "", models.NewValidationError(
			fmt.Sprintf("Topic must be at most %d characters", MaxTopicChars))
	}
	return topic, nil
}

func normalizeUsername(username string) (string, error) {
	username = strings.TrimSpace(username)
	if utf8.RuneCountInString(username) > MaxUsernameChars {
		return "", models.NewValidationError(
			fmt.Sprintf("Username must be at most %d characters", MaxUsernameChars))
	}
	return username, nil
}

// ValidateConfession checks and normalizes every author-supplied field.
// A username is required unless the confession is anonymous.
func ValidateConfession(catalog *models.Catalog, in ConfessionFields) (ConfessionFields, error) {
	var err error
	out := ConfessionFields{Anonymous: in.Anonymous}

	if out.Text, err = ValidateConfessionText(in.Text); err != nil {
		return ConfessionFields{}, err
	}
	if out.Tags, err = NormalizeTags(catalog, in.Tags); err != nil {
		return ConfessionFields{}, err
	}
	if out.Mood, err = NormalizeMood(catalog, in.Mood); err != nil {
		return ConfessionFields{}, err
	}
	if out.Topic, err = NormalizeTopic(in.Topic); err != nil {
		return ConfessionFields{}, err
	}
	if out.Username, err = normalizeUsername(in.Username); err != nil {
		return ConfessionFields{}, err
	}
	if out.Username == "" && !out.Anonymous {
		return ConfessionFields{}, models.NewValidationError("Username is required unless posting anonymously")
	}
	return out, nil
}

// ValidateComment checks a comment body and optional username.
func ValidateComment(text, username string) (string, string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", "", models.NewValidationError("Comment text is required")
	}
	if utf8.RuneCountInString(text) > MaxCommentChars {
		return "", "", models.NewValidationError(
			fmt.Sprintf("Comment must be at most %d characters", MaxCommentChars))
	}
	username, err := normalizeUsername(username)
	if err != nil {
		return "", "", err
	}
	return text, username, nil
}

func devicePrefix(deviceID string) string {
	if len(deviceID) > deviceIDPrefixForName {
		return deviceID[:deviceIDPrefixForName]
	}
	return deviceID
}

// ConfessionUsername picks the display name stored on a confession.
func ConfessionUsername(username string, anonymous bool, deviceID string) string {
	if anonymous {
		return "Anonymous"
	}
	if username != "" {
		return username
	}
	return "User-" + devicePrefix(deviceID)
}

// CommentUsername picks the display name stored on a comment.
func CommentUsername(username, deviceID string) string {
	if username != "" {
		return username
	}
	return "Anonymous User-" + devicePrefix(deviceID)
}

// AvatarSeeder turns a device id into a stable avatar seed that cannot be
// turned back into the id. Avatars are public; device ids are credentials.
type AvatarSeeder struct {
	key []byte
}

func NewAvatarSeeder(key string) AvatarSeeder {
	return AvatarSeeder{key: []byte(key)}
}

// Seed is the first 16 hex digits of HMAC-SHA256(key, deviceID).
func (a AvatarSeeder) Seed(deviceID string) string {
	mac := hmac.New(sha256.New, a.key)
	mac.Write([]byte(deviceID))
	return hex.EncodeToString(mac.Sum(nil))[:16]
}

// DeviceAvatar is the default avatar for a device.
func (a AvatarSeeder) DeviceAvatar(deviceID string) string {
	return fmt.Sprintf("https://%s/%s/%s/svg?seed=%s",
		avatarHost, avatarVersion, defaultAvatarStyle, url.QueryEscape(a.Seed(deviceID)))
}

// ResolveAvatar returns the device avatar when none was supplied, the supplied
// URL when it is an approved DiceBear style, and DefaultAvatar otherwise.
func (a AvatarSeeder) ResolveAvatar(avatar, deviceID string) string {
	avatar = strings.TrimSpace(avatar)
	if avatar == "" {
		return a.DeviceAvatar(deviceID)
	}
	if IsApprovedAvatar(avatar) {
		return avatar
	}
	return DefaultAvatar
}

// IsApprovedAvatar reports whether raw is https://api.dicebear.com/7.x/<style>/svg
// with an approved style.
func IsApprovedAvatar(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme != "https" || u.Host != avatarHost {
		return false
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) != 3 || parts[0] != avatarVersion || parts[2] != "svg" {
		return false
	}
	_, ok := approvedAvatarStyles[parts[1]]
	return ok
}
