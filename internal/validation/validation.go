// Package validation provides field-level checks for candidate videos.
package validation

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/vidfeed/video-feed-import-go/internal/db/models"
)

const (
	maxNameLength  = 250
	maxURLLength   = 400
	maxGUIDLength  = 250
	maxEmailLength = 250
)

var emailRegex = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// Validator checks video field constraints before persistence. Note
// that the import pipeline records validation failures but still saves
// the row; callers decide what to do with the result.
type Validator struct {
	enabled bool
}

// New creates a Validator. A disabled validator accepts everything.
func New(enabled bool) *Validator {
	return &Validator{enabled: enabled}
}

// ValidateVideo returns an error describing every field-level problem
// with the candidate video, or nil if it is clean.
func (v *Validator) ValidateVideo(video *models.Video) error {
	if !v.enabled {
		return nil
	}

	var problems []string

	if strings.TrimSpace(video.Name) == "" {
		problems = append(problems, "name is required")
	}
	if len(video.Name) > maxNameLength {
		problems = append(problems, fmt.Sprintf("name exceeds %d characters", maxNameLength))
	}

	for field, value := range map[string]string{
		"original_url":           video.OriginalURL,
		"web_url":                video.WebURL,
		"flash_enclosure_url":    video.FlashEnclosureURL,
		"thumbnail_url":          video.ThumbnailURL,
		"external_user_url":      video.ExternalUserURL,
		"external_thumbnail_url": video.ExternalThumbnailURL,
	} {
		if len(value) > maxURLLength {
			problems = append(problems, fmt.Sprintf("%s exceeds %d characters", field, maxURLLength))
		}
	}

	if len(video.GUID) > maxGUIDLength {
		problems = append(problems, fmt.Sprintf("guid exceeds %d characters", maxGUIDLength))
	}

	if video.OwnerEmail != "" {
		if len(video.OwnerEmail) > maxEmailLength {
			problems = append(problems, fmt.Sprintf("owner_email exceeds %d characters", maxEmailLength))
		} else if !emailRegex.MatchString(video.OwnerEmail) {
			problems = append(problems, "owner_email is not a valid email address")
		}
	}

	switch video.Status {
	case models.VideoUnpublished, models.VideoNeedsModeration, models.VideoPublished, models.VideoHidden:
	default:
		problems = append(problems, fmt.Sprintf("unknown status %q", video.Status))
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid video: %s", strings.Join(problems, "; "))
	}

	return nil
}
