// Package tumblr drives Tumblr's web editor through chromedp.
package tumblr

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"
	"github.com/sirupsen/logrus"

	"github.com/ghostpost/ghostpost/internal/browser"
	"github.com/ghostpost/ghostpost/internal/poster"
)

const (
	consentTimeout     = 2 * time.Second
	unhiddenTimeout    = 10 * time.Second
	previewTimeout     = 30 * time.Second
	previewAreaTimeout = 40 * time.Second
	tagsOpenerTimeout  = 2 * time.Second
	tagsInputTimeout   = 6 * time.Second
	pollInterval       = 500 * time.Millisecond
)

// Options tunes element waits and input pacing
type Options struct {
	Timeout  time.Duration // file input wait
	Typist   poster.Typist
	TagDelay time.Duration
}

// Page implements poster.Page on a live browser session
type Page struct {
	sess *browser.Session
	opts Options
	log  logrus.FieldLogger

	// formSeen records whether the post form was on the page when publish was clicked
	formSeen bool
}

var _ poster.Page = (*Page)(nil)

// NewPage creates a Tumblr page driver on sess
func NewPage(sess *browser.Session, opts Options, log logrus.FieldLogger) *Page {
	if opts.Timeout <= 0 {
		opts.Timeout = 50 * time.Second
	}
	return &Page{sess: sess, opts: opts, log: log}
}

// run executes actions bounded by timeout and by ctx
func (p *Page) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	tctx, cancel := context.WithTimeout(p.sess.Context(), timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()
	return chromedp.Run(tctx, actions...)
}

// OpenCompose navigates to the photo post editor
func (p *Page) OpenCompose(ctx context.Context) error {
	return p.run(ctx, p.opts.Timeout, chromedp.Navigate(NewPhotoURL))
}

// DismissConsent clicks the first consent button that shows up within a short wait
func (p *Page) DismissConsent(ctx context.Context) bool {
	for _, sel := range ConsentButtons {
		if p.run(ctx, consentTimeout, chromedp.Click(sel, chromedp.ByQuery)) == nil {
			return true
		}
	}
	return false
}

// LocateFileInput waits for the upload input and forces it visible when the
// editor keeps it hidden
func (p *Page) LocateFileInput(ctx context.Context) error {
	if p.run(ctx, p.opts.Timeout, chromedp.WaitVisible(FileInput, chromedp.ByQuery)) == nil {
		return nil
	}

	p.log.Info("File input not visible, forcing it visible")
	var found bool
	if err := p.run(ctx, unhiddenTimeout, chromedp.Evaluate(unhideFileInputJS, &found)); err != nil {
		return fmt.Errorf("failed to unhide file input: %w", err)
	}
	if !found {
		return errors.New("no file input on the page")
	}
	return p.run(ctx, unhiddenTimeout, chromedp.WaitVisible(FileInput, chromedp.ByQuery))
}

// Upload hands absPath to the file input
func (p *Page) Upload(ctx context.Context, absPath string) error {
	return p.run(ctx, p.opts.Timeout, chromedp.SetUploadFiles(FileInput, []string{absPath}, chromedp.ByQuery))
}

// WaitPreview waits for an upload preview, first by known markup then by any
// image in the form large enough to be the upload
func (p *Page) WaitPreview(ctx context.Context) bool {
	var ok bool
	err := p.run(ctx, previewTimeout+time.Second,
		chromedp.Poll(previewJS, &ok, chromedp.WithPollingInterval(pollInterval), chromedp.WithPollingTimeout(previewTimeout)))
	if err == nil && ok {
		return true
	}

	err = p.run(ctx, previewAreaTimeout+time.Second,
		chromedp.Poll(previewAreaJS, &ok, chromedp.WithPollingInterval(pollInterval), chromedp.WithPollingTimeout(previewAreaTimeout)))
	return err == nil && ok
}

// WriteCaption types text into the caption box like a person would, and falls
// back to setting the text from script when typing leaves the box empty
func (p *Page) WriteCaption(ctx context.Context, text string) error {
	box, err := p.findCaptionBox(ctx)
	if err != nil {
		return err
	}

	if err := p.typeInto(ctx, box, text); err != nil {
		p.log.WithError(err).Debug("Typing into caption box failed")
	} else if p.hasText(ctx, box) {
		return nil
	}

	p.log.Info("Typed caption not visible, setting it from script")
	var ok bool
	err = p.run(ctx, p.opts.Timeout, chromedp.ActionFunc(func(ctx context.Context) error {
		obj, err := dom.ResolveNode().WithNodeID(box.NodeID).Do(ctx)
		if err != nil {
			return err
		}
		return chromedp.CallFunctionOn(setTextFn, &ok,
			func(params *runtime.CallFunctionOnParams) *runtime.CallFunctionOnParams {
				return params.WithObjectID(obj.ObjectID)
			},
			text,
		).Do(ctx)
	}))
	if err != nil {
		return fmt.Errorf("failed to set caption from script: %w", err)
	}
	if !ok && !p.hasText(ctx, box) {
		return fmt.Errorf("caption box stayed empty: %w", poster.ErrCaptionNotFound)
	}
	return nil
}

// findCaptionBox searches the page, then any iframe that looks like the editor
func (p *Page) findCaptionBox(ctx context.Context) (*cdp.Node, error) {
	if n := p.firstMatch(ctx, CaptionBoxes); n != nil {
		return n, nil
	}

	var frames []*cdp.Node
	if err := p.run(ctx, p.opts.Timeout, chromedp.Nodes("iframe", &frames, chromedp.ByQueryAll, chromedp.AtLeast(0))); err != nil {
		return nil, fmt.Errorf("failed to list iframes: %w", err)
	}
	for _, frame := range frames {
		if p.firstMatch(ctx, []string{EditorFrameSignature}, chromedp.FromNode(frame)) == nil {
			continue
		}
		if n := p.firstMatch(ctx, CaptionBoxes, chromedp.FromNode(frame)); n != nil {
			return n, nil
		}
	}

	return nil, poster.ErrCaptionNotFound
}

// firstMatch returns the first node matched by the first matching CSS selector
func (p *Page) firstMatch(ctx context.Context, selectors []string, opts ...chromedp.QueryOption) *cdp.Node {
	for _, sel := range selectors {
		var nodes []*cdp.Node
		qopts := append([]chromedp.QueryOption{chromedp.ByQuery, chromedp.AtLeast(0)}, opts...)
		if err := p.run(ctx, p.opts.Timeout, chromedp.Nodes(sel, &nodes, qopts...)); err != nil {
			continue
		}
		if len(nodes) > 0 {
			return nodes[0]
		}
	}
	return nil
}

func (p *Page) typeInto(ctx context.Context, box *cdp.Node, text string) error {
	ids := []cdp.NodeID{box.NodeID}
	err := p.run(ctx, p.opts.Timeout,
		chromedp.ScrollIntoView(ids, chromedp.ByNodeID),
		chromedp.MouseClickNode(box),
	)
	if err != nil {
		return err
	}
	return p.opts.Typist.Type(ctx, text, func(ctx context.Context, r string) error {
		return p.run(ctx, p.opts.Timeout, chromedp.KeyEventNode(box, r))
	})
}

func (p *Page) hasText(ctx context.Context, box *cdp.Node) bool {
	var text string
	err := p.run(ctx, p.opts.Timeout, chromedp.TextContent([]cdp.NodeID{box.NodeID}, &text, chromedp.ByNodeID))
	return err == nil && strings.TrimSpace(text) != ""
}

// AddTags opens the tag field when it is collapsed and enters each tag
func (p *Page) AddTags(ctx context.Context, tags []string) error {
	_ = p.run(ctx, tagsOpenerTimeout, chromedp.Click(TagsOpener, chromedp.ByQuery))

	if err := p.run(ctx, tagsInputTimeout, chromedp.WaitVisible(TagsInput, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("%w: %v", poster.ErrTagsUnavailable, err)
	}

	for _, t := range tags {
		t = strings.TrimLeft(strings.TrimSpace(t), "#")
		if t == "" {
			continue
		}
		err := p.run(ctx, p.opts.Timeout,
			chromedp.SendKeys(TagsInput, t, chromedp.ByQuery),
			chromedp.Sleep(p.opts.TagDelay),
			chromedp.SendKeys(TagsInput, kb.Enter, chromedp.ByQuery),
			chromedp.Sleep(p.opts.TagDelay),
		)
		if err != nil {
			return fmt.Errorf("failed to enter tag %q: %w", t, err)
		}
	}
	return nil
}

// Publish clicks the first publish button found
func (p *Page) Publish(ctx context.Context) error {
	p.formSeen = p.firstMatch(ctx, []string{PostForm}) != nil
	if !p.formSeen {
		p.log.Warn("Post form not found before publishing, only the dashboard redirect will confirm")
	}

	for _, xp := range PublishButtons {
		var nodes []*cdp.Node
		if err := p.run(ctx, p.opts.Timeout, chromedp.Nodes(xp, &nodes, chromedp.BySearch, chromedp.AtLeast(0))); err != nil {
			continue
		}
		if len(nodes) == 0 {
			continue
		}
		if err := p.run(ctx, p.opts.Timeout, chromedp.MouseClickNode(nodes[0])); err != nil {
			return fmt.Errorf("failed to click publish: %w", err)
		}
		return nil
	}
	return poster.ErrPublishNotFound
}

// WaitPublished waits for the dashboard, or for the compose form to go away
// when it was present at publish time
func (p *Page) WaitPublished(ctx context.Context, timeout time.Duration) error {
	js := dashboardJS
	if p.formSeen {
		js = publishedJS
	}
	var ok bool
	return p.run(ctx, timeout+time.Second,
		chromedp.Poll(js, &ok, chromedp.WithPollingInterval(pollInterval), chromedp.WithPollingTimeout(timeout)))
}

// Snapshot captures the page HTML and a screenshot for failure diagnosis
func (p *Page) Snapshot(ctx context.Context) (html string, png []byte, err error) {
	err = p.run(ctx, 15*time.Second,
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
		chromedp.CaptureScreenshot(&png),
	)
	return html, png, err
}
