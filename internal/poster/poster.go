// Package poster runs the compose-page steps of a media post. The markup-specific
// work of finding elements lives behind Page so a site redesign only touches the
// Page implementation.
package poster

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/disintegration/imaging"
	"github.com/sirupsen/logrus"
)

var (
	ErrImageNotFound   = errors.New("image not found")
	ErrCaptionNotFound = errors.New("caption box not found")
	ErrTagsUnavailable = errors.New("tag input not found")
	ErrPublishNotFound = errors.New("publish button not found")
)

// PublishConfirmTimeout bounds the wait for the dashboard after clicking publish
const PublishConfirmTimeout = 20 * time.Second

// Page is the capability surface of a platform's compose page
type Page interface {
	// OpenCompose navigates to the compose page.
	OpenCompose(ctx context.Context) error
	// DismissConsent clicks a cookie-consent banner if one shows up.
	DismissConsent(ctx context.Context) bool
	// LocateFileInput finds the upload input, unhiding it if necessary.
	LocateFileInput(ctx context.Context) error
	// Upload sends an absolute file path to the upload input.
	Upload(ctx context.Context, absPath string) error
	// WaitPreview reports whether an upload preview appeared.
	WaitPreview(ctx context.Context) bool
	// WriteCaption finds the editable caption region and fills it.
	WriteCaption(ctx context.Context, text string) error
	// AddTags enters each tag into the tag input.
	AddTags(ctx context.Context, tags []string) error
	// Publish finds the publish control and clicks it.
	Publish(ctx context.Context) error
	// WaitPublished waits for the page to confirm the post.
	WaitPublished(ctx context.Context, timeout time.Duration) error
}

// Request is one media post
type Request struct {
	ImagePath string
	Caption   string
	Tags      []string
	DryRun    bool
}

// Poster drives a Page through upload, caption, tags and publish
type Poster struct {
	page Page
	log  logrus.FieldLogger
}

// New creates a poster for page
func New(page Page, log logrus.FieldLogger) *Poster {
	return &Poster{page: page, log: log}
}

// Post publishes req. Consent, preview, caption and tag problems are logged and
// the post goes on without them; a missing image, a failed upload, a missing
// publish button or an unconfirmed publish return an error. In dry-run mode
// everything up to publishing runs and nil is returned.
func (p *Poster) Post(ctx context.Context, req Request) error {
	log := p.log.WithField("image", req.ImagePath)

	log.Info("Opening the compose page")
	if err := p.page.OpenCompose(ctx); err != nil {
		return fmt.Errorf("failed to open compose page: %w", err)
	}

	if p.page.DismissConsent(ctx) {
		log.Info("Cookie consent accepted")
	}

	if err := p.page.LocateFileInput(ctx); err != nil {
		return fmt.Errorf("failed to locate file input: %w", err)
	}

	abs, err := filepath.Abs(req.ImagePath)
	if err != nil {
		return fmt.Errorf("failed to resolve image path: %w", err)
	}
	if _, err := os.Stat(abs); err != nil {
		log.WithField("path", abs).Error("Image not found")
		return fmt.Errorf("%w: %s", ErrImageNotFound, abs)
	}
	p.preflight(log, abs)

	log.WithField("path", abs).Info("Uploading image")
	if err := p.page.Upload(ctx, abs); err != nil {
		return fmt.Errorf("failed to upload image: %w", err)
	}

	if p.page.WaitPreview(ctx) {
		log.Info("Upload preview detected")
	} else {
		log.Warn("No upload preview detected, continuing anyway")
	}

	if req.Caption != "" {
		if err := p.page.WriteCaption(ctx, req.Caption); err != nil {
			log.WithError(err).Warn("Caption box missing or not editable, posting without text")
		} else {
			log.Info("Caption written")
		}
	}

	if len(req.Tags) > 0 {
		if err := p.page.AddTags(ctx, req.Tags); err != nil {
			log.WithError(err).Info("Tag input not available, skipping tags")
		} else {
			log.WithField("count", len(req.Tags)).Info("Tags added")
		}
	}

	if req.DryRun {
		log.Info("Dry run: not pressing publish")
		return nil
	}

	log.Info("Publishing")
	if err := p.page.Publish(ctx); err != nil {
		log.WithError(err).Error("Publish failed")
		return err
	}

	if err := p.page.WaitPublished(ctx, PublishConfirmTimeout); err != nil {
		log.WithError(err).Error("Publish not confirmed")
		return fmt.Errorf("publish not confirmed: %w", err)
	}

	log.Info("Publish confirmed")
	return nil
}

// preflight decodes the image so an unreadable file shows up in the log before
// the platform rejects it. It never blocks the upload.
func (p *Poster) preflight(log logrus.FieldLogger, path string) {
	img, err := imaging.Open(path)
	if err != nil {
		log.WithError(err).Warn("Image could not be decoded locally, uploading anyway")
		return
	}
	b := img.Bounds()
	log.WithFields(logrus.Fields{"width": b.Dx(), "height": b.Dy()}).Debug("Image decoded")
}
