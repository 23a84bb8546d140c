package poster

import (
	"context"
	"errors"
	"image/color"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/disintegration/imaging"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakePage records the steps it was driven through
type fakePage struct {
	calls []string

	uploaded string
	caption  string
	tags     []string

	openErr      error
	consent      bool
	fileInputErr error
	uploadErr    error
	preview      bool
	captionErr   error
	tagsErr      error
	publishErr   error
	confirmErr   error
}

func (f *fakePage) OpenCompose(context.Context) error {
	f.calls = append(f.calls, "open")
	return f.openErr
}

func (f *fakePage) DismissConsent(context.Context) bool {
	f.calls = append(f.calls, "consent")
	return f.consent
}

func (f *fakePage) LocateFileInput(context.Context) error {
	f.calls = append(f.calls, "file-input")
	return f.fileInputErr
}

func (f *fakePage) Upload(_ context.Context, path string) error {
	f.calls = append(f.calls, "upload")
	f.uploaded = path
	return f.uploadErr
}

func (f *fakePage) WaitPreview(context.Context) bool {
	f.calls = append(f.calls, "preview")
	return f.preview
}

func (f *fakePage) WriteCaption(_ context.Context, text string) error {
	f.calls = append(f.calls, "caption")
	f.caption = text
	return f.captionErr
}

func (f *fakePage) AddTags(_ context.Context, tags []string) error {
	f.calls = append(f.calls, "tags")
	f.tags = tags
	return f.tagsErr
}

func (f *fakePage) Publish(context.Context) error {
	f.calls = append(f.calls, "publish")
	return f.publishErr
}

func (f *fakePage) WaitPublished(context.Context, time.Duration) error {
	f.calls = append(f.calls, "confirm")
	return f.confirmErr
}

func writeImage(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "img.png")
	require.NoError(t, imaging.Save(imaging.New(120, 80, color.White), path))
	return path
}

func newTestPoster(page Page) (*Poster, *logtest.Hook) {
	logger, hook := logtest.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	return New(page, logger), hook
}

func hasEntry(hook *logtest.Hook, level logrus.Level, msg string) bool {
	for _, e := range hook.AllEntries() {
		if e.Level == level && e.Message == msg {
			return true
		}
	}
	return false
}

func TestPost_FullFlow(t *testing.T) {
	img := writeImage(t)
	page := &fakePage{consent: true, preview: true}
	p, hook := newTestPoster(page)

	err := p.Post(context.Background(), Request{ImagePath: img, Caption: "hello", Tags: []string{"cat", "dog"}})
	require.NoError(t, err)

	assert.Equal(t, []string{"open", "consent", "file-input", "upload", "preview", "caption", "tags", "publish", "confirm"}, page.calls)
	assert.Equal(t, img, page.uploaded)
	assert.Equal(t, "hello", page.caption)
	assert.Equal(t, []string{"cat", "dog"}, page.tags)
	assert.True(t, hasEntry(hook, logrus.DebugLevel, "Image decoded"))
	assert.True(t, hasEntry(hook, logrus.InfoLevel, "Publish confirmed"))
}

func TestPost_DryRunNeverPublishes(t *testing.T) {
	img := writeImage(t)
	page := &fakePage{preview: true}
	p, _ := newTestPoster(page)

	err := p.Post(context.Background(), Request{ImagePath: img, Caption: "hello", Tags: []string{"a"}, DryRun: true})
	require.NoError(t, err)

	assert.NotContains(t, page.calls, "publish")
	assert.NotContains(t, page.calls, "confirm")
	assert.Contains(t, page.calls, "tags")
}

func TestPost_DryRunStillFailsOnHardErrors(t *testing.T) {
	page := &fakePage{}
	p, _ := newTestPoster(page)

	err := p.Post(context.Background(), Request{ImagePath: filepath.Join(t.TempDir(), "missing.jpg"), DryRun: true})
	assert.ErrorIs(t, err, ErrImageNotFound)
}

func TestPost_MissingImage(t *testing.T) {
	page := &fakePage{}
	p, hook := newTestPoster(page)

	err := p.Post(context.Background(), Request{ImagePath: filepath.Join(t.TempDir(), "missing.jpg")})
	require.ErrorIs(t, err, ErrImageNotFound)
	assert.NotContains(t, page.calls, "upload")
	assert.True(t, hasEntry(hook, logrus.ErrorLevel, "Image not found"))
}

func TestPost_RelativeImagePathIsResolved(t *testing.T) {
	img := writeImage(t)
	t.Chdir(filepath.Dir(img))

	page := &fakePage{}
	p, _ := newTestPoster(page)

	require.NoError(t, p.Post(context.Background(), Request{ImagePath: "img.png", DryRun: true}))
	assert.True(t, filepath.IsAbs(page.uploaded))
	assert.Equal(t, "img.png", filepath.Base(page.uploaded))
}

func TestPost_SoftFailuresAreAbsorbed(t *testing.T) {
	img := writeImage(t)
	page := &fakePage{
		preview:    false,
		captionErr: ErrCaptionNotFound,
		tagsErr:    ErrTagsUnavailable,
	}
	p, hook := newTestPoster(page)

	err := p.Post(context.Background(), Request{ImagePath: img, Caption: "x", Tags: []string{"a"}})
	require.NoError(t, err)
	assert.Contains(t, page.calls, "publish")
	assert.True(t, hasEntry(hook, logrus.WarnLevel, "No upload preview detected, continuing anyway"))
	assert.True(t, hasEntry(hook, logrus.WarnLevel, "Caption box missing or not editable, posting without text"))
}

func TestPost_SkipsEmptyCaptionAndTags(t *testing.T) {
	img := writeImage(t)
	page := &fakePage{}
	p, _ := newTestPoster(page)

	require.NoError(t, p.Post(context.Background(), Request{ImagePath: img}))
	assert.NotContains(t, page.calls, "caption")
	assert.NotContains(t, page.calls, "tags")
}

func TestPost_HardFailures(t *testing.T) {
	boom := errors.New("boom")
	tests := []struct {
		name string
		page *fakePage
		want error
	}{
		{"open", &fakePage{openErr: boom}, boom},
		{"file input", &fakePage{fileInputErr: boom}, boom},
		{"upload", &fakePage{uploadErr: boom}, boom},
		{"publish button", &fakePage{publishErr: ErrPublishNotFound}, ErrPublishNotFound},
		{"confirmation", &fakePage{confirmErr: context.DeadlineExceeded}, context.DeadlineExceeded},
	}

	img := writeImage(t)
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p, _ := newTestPoster(tc.page)
			err := p.Post(context.Background(), Request{ImagePath: img})
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestPost_UndecodableImageOnlyWarns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clip.gifv")
	require.NoError(t, os.WriteFile(path, []byte("not an image"), 0644))

	page := &fakePage{}
	p, hook := newTestPoster(page)

	require.NoError(t, p.Post(context.Background(), Request{ImagePath: path}))
	assert.True(t, hasEntry(hook, logrus.WarnLevel, "Image could not be decoded locally, uploading anyway"))
}
