package tumblr

import "github.com/ghostpost/ghostpost/internal/types"

// Tumblr URLs and DOM selectors.
// These are isolated here because Tumblr changes its editor markup without notice.
// Update these when posting breaks; `ghostpost probe` on a saved failure page shows
// which alternatives still match.

const (
	RootURL      = "https://www.tumblr.com/"
	LoginURL     = "https://www.tumblr.com/login"
	DashboardURL = "https://www.tumblr.com/dashboard"
	NewPhotoURL  = "https://www.tumblr.com/new/photo"
)

const (
	// Only rendered for a logged-in user
	PostTypeSelector = `[data-testid='post-type-selector']`

	FileInput = `input[type='file']`
	PostForm  = `[data-testid='post-form']`

	// An iframe is treated as the editor when its document contains one of these
	EditorFrameSignature = `div[contenteditable='true'], [data-testid='post-form']`

	TagsOpener = `[data-testid='post-form-tags'] button`
	TagsInput  = `[data-testid='post-form-tags'] input`
)

// ConsentButtons close the cookie banner, English and French variants
var ConsentButtons = []string{
	`button[aria-label='Accept all']`,
	`[data-testid='cookie-accept-all']`,
	`button[aria-label='Tout accepter']`,
}

// CaptionBoxes are tried in order, first in the page then inside the editor iframe
var CaptionBoxes = []string{
	`[data-testid='caption-editor'] div[contenteditable='true']`,
	`div[contenteditable='true'][data-placeholder]`,
	`div[role='textbox']`,
	`[contenteditable='true']`,
}

// PublishButtons prefer the data attribute and fall back to the button text
var PublishButtons = []string{
	`//button[@data-testid='post-form-button']`,
	`//button[.//span[normalize-space()='Post' or normalize-space()='Publier']]`,
	`//button[contains(.,'Post') or contains(.,'Publier')]`,
}

// Scripts evaluated in the page

const unhideFileInputJS = `(function() {
	const inp = document.querySelector("input[type='file']");
	if (inp) { inp.style.display = 'block'; inp.style.opacity = 1; inp.removeAttribute('hidden'); }
	return !!inp;
})()`

const previewJS = `document.querySelectorAll("[data-testid='media-row'], [data-testid='attachment'], [data-testid='post-form'] img, [data-testid='post-form'] video").length > 0`

// Any image in the form larger than a placeholder icon counts as a preview
const previewAreaJS = `(function() {
	const form = document.querySelector("[data-testid='post-form']") || document.body;
	for (const im of form.querySelectorAll('img')) {
		if ((im.naturalWidth || 0) * (im.naturalHeight || 0) > 5000) return true;
	}
	return false;
})()`

const dashboardJS = `location.href.startsWith("https://www.tumblr.com/dashboard")`

// Only meaningful when the form was on the page before publishing
const publishedJS = dashboardJS + ` || !document.querySelector("[data-testid='post-form']")`

// Called on the caption node when simulated typing left it empty
const setTextFn = `function(t) {
	this.focus();
	if ('innerHTML' in this) this.innerHTML = '';
	this.appendChild(document.createTextNode(t));
	this.dispatchEvent(new InputEvent('input', {bubbles: true}));
	this.dispatchEvent(new Event('change', {bubbles: true}));
	return (this.innerText || this.textContent || '').trim().length > 0;
}`

// Site is the login and session description of Tumblr
var Site = types.Site{
	Name:             "tumblr",
	RootURL:          RootURL,
	LoginURL:         LoginURL,
	DashboardPrefix:  DashboardURL,
	LoggedInSelector: PostTypeSelector,
}

// Cascades lists the selector fallbacks the poster tries, in order
func Cascades() []types.Cascade {
	return []types.Cascade{
		{Name: "consent", Selectors: ConsentButtons},
		{Name: "file-input", Selectors: []string{FileInput}},
		{Name: "caption", Selectors: CaptionBoxes},
		{Name: "editor-iframe", Selectors: []string{"iframe"}},
		{Name: "tags", Selectors: []string{TagsOpener, TagsInput}},
		{Name: "publish", XPath: true, Selectors: PublishButtons},
		{Name: "post-form", Selectors: []string{PostForm}},
	}
}
