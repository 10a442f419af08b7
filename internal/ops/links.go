package ops

import (
	"database/sql"
	"strings"
	"time"

	"github.com/hyesung/opsbundle/internal/bundle"
	"github.com/hyesung/opsbundle/internal/db"
	"github.com/hyesung/opsbundle/internal/errors"
)

// LinkFields holds the user-editable fields of a link entry.
type LinkFields struct {
	BundleID    string
	CommandID   int
	URL         string
	Description string
	Tags        string
}

// CreateLinkInput contains parameters for the CreateLink operation.
type CreateLinkInput struct {
	Dataset string
	Fields  LinkFields
}

// CreateLinkOutput contains the id assigned to the new link.
type CreateLinkOutput struct {
	ID string `json:"id"`
}

// CreateLink stores a new link entry. The referenced bundle does not have to
// exist; a dangling reference simply shows as orphaned.
func CreateLink(database *sql.DB, input CreateLinkInput) (*CreateLinkOutput, error) {
	dataset, err := requireDataset(input.Dataset)
	if err != nil {
		return nil, err
	}
	l, err := linkFromFields(dataset, input.Fields)
	if err != nil {
		return nil, err
	}
	l.ID = newULID()
	now := time.Now().Unix()
	l.CreatedAt = now
	l.UpdatedAt = now

	err = inTx(database, func(tx *sql.Tx) error {
		return db.InsertLink(tx, l)
	})
	if err != nil {
		return nil, err
	}
	return &CreateLinkOutput{ID: l.ID}, nil
}

// UpdateLinkInput contains parameters for the UpdateLink operation.
type UpdateLinkInput struct {
	Dataset string
	ID      string
	Fields  LinkFields
}

// UpdateLinkOutput contains the updated link.
type UpdateLinkOutput struct {
	Link *bundle.LinkEntry `json:"link"`
}

// UpdateLink replaces the editable fields of an existing link entry.
func UpdateLink(database *sql.DB, input UpdateLinkInput) (*UpdateLinkOutput, error) {
	dataset, err := requireDataset(input.Dataset)
	if err != nil {
		return nil, err
	}
	id := strings.TrimSpace(input.ID)
	if id == "" {
		return nil, errors.NewValidation("id is required")
	}
	l, err := linkFromFields(dataset, input.Fields)
	if err != nil {
		return nil, err
	}

	err = inTx(database, func(tx *sql.Tx) error {
		current, err := db.GetLink(tx, dataset, id)
		if err != nil {
			return err
		}
		l.ID = current.ID
		l.CreatedAt = current.CreatedAt
		l.UpdatedAt = time.Now().Unix()
		return db.UpdateLink(tx, l)
	})
	if err != nil {
		return nil, err
	}
	return &UpdateLinkOutput{Link: l}, nil
}

// DeleteLinkInput contains parameters for the DeleteLink operation.
type DeleteLinkInput struct {
	Dataset string
	ID      string
}

// DeleteLinkOutput confirms the deletion.
type DeleteLinkOutput struct {
	ID string `json:"id"`
}

// DeleteLink removes a link entry.
func DeleteLink(database *sql.DB, input DeleteLinkInput) (*DeleteLinkOutput, error) {
	dataset, err := requireDataset(input.Dataset)
	if err != nil {
		return nil, err
	}
	id := strings.TrimSpace(input.ID)
	if id == "" {
		return nil, errors.NewValidation("id is required")
	}

	err = inTx(database, func(tx *sql.Tx) error {
		return db.DeleteLink(tx, dataset, id)
	})
	if err != nil {
		return nil, err
	}
	return &DeleteLinkOutput{ID: id}, nil
}

// ListLinksInput contains parameters for the ListLinks operation.
type ListLinksInput struct {
	Dataset string

	// BundleID restricts the listing to one bundle when set.
	BundleID string
}

// ListLinksOutput contains link entries with their resolution state.
type ListLinksOutput struct {
	Links []ResolvedLink `json:"links"`
	Total int            `json:"total"`
}

// ListLinks returns link entries, each flagged orphaned when its bundle or
// command position no longer resolves.
func ListLinks(database *sql.DB, input ListLinksInput) (*ListLinksOutput, error) {
	dataset, err := requireDataset(input.Dataset)
	if err != nil {
		return nil, err
	}

	links, err := db.ListLinks(database, dataset, strings.TrimSpace(input.BundleID))
	if err != nil {
		return nil, err
	}
	counts, err := db.CommandCounts(database, dataset)
	if err != nil {
		return nil, err
	}
	resolved := resolveLinks(links, counts)
	return &ListLinksOutput{Links: resolved, Total: len(resolved)}, nil
}

func linkFromFields(dataset string, f LinkFields) (*bundle.LinkEntry, error) {
	url := strings.TrimSpace(f.URL)
	if url == "" {
		return nil, errors.NewValidation("url is required")
	}
	if f.CommandID < 0 {
		return nil, errors.NewValidation("command_id must not be negative")
	}
	return &bundle.LinkEntry{
		Dataset:     dataset,
		BundleID:    strings.TrimSpace(f.BundleID),
		CommandID:   f.CommandID,
		URL:         url,
		Description: strings.TrimSpace(f.Description),
		Tags:        bundle.ParseKeywords(f.Tags),
	}, nil
}
