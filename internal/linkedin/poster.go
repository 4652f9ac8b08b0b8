package linkedin

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"time"

	"github.com/aide-sh/aide/internal/browser"
	"github.com/aide-sh/aide/internal/vault"
	"github.com/aide-sh/aide/pkg/models"
)

const defaultMaxPostsPerRun = 5

// Poster publishes human-approved posts from Approved/ to the LinkedIn
// feed. Only files a person moved through the approval flow are ever
// touched; the poster never composes content.
type Poster struct {
	pages   PageFunc
	vault   *vault.Vault
	cfg     models.LinkedInConfig
	probe   *browser.StateProbe
	dryRun  bool
	devMode bool

	// settle pauses between composer interactions for the page to
	// render; tests set it to zero.
	settle time.Duration
}

// NewPoster creates the LinkedIn poster.
func NewPoster(pages PageFunc, v *vault.Vault, cfg models.LinkedInConfig, authElementThreshold int, dryRun, devMode bool) *Poster {
	return &Poster{
		pages:   pages,
		vault:   v,
		cfg:     cfg,
		probe:   browser.LinkedInProbe(authElementThreshold),
		dryRun:  dryRun,
		devMode: devMode,
		settle:  2 * time.Second,
	}
}

// ProcessApproved publishes every approved linkedin_post item, capped per
// run to prevent runaway posting. Returns the number processed. The
// browser only launches when there is something to post.
func (p *Poster) ProcessApproved(ctx context.Context) (int, error) {
	posts, err := p.findApproved()
	if err != nil {
		return 0, err
	}
	if len(posts) == 0 {
		return 0, nil
	}
	log.Printf("linkedin: %d approved post(s) to publish", len(posts))

	var page browser.Page
	if !p.dryRun && !p.devMode {
		page, err = p.openFeed(ctx)
		if err != nil {
			return 0, err
		}
	}

	processed := 0
	for _, post := range posts {
		cid := vault.CorrelationID()
		text := postText(post.Body)
		if text == "" {
			log.Printf("linkedin: empty post content in %s, skipping", filepath.Base(post.Path))
			continue
		}

		if p.dryRun {
			if err := p.logAction(cid, post, "dry_run", text); err != nil {
				return processed, err
			}
			processed++
			continue
		}

		if err := p.publish(ctx, page, text); err != nil {
			log.Printf("linkedin: publishing %s: %v", filepath.Base(post.Path), err)
			p.logFailure(cid, post, err)
			continue
		}

		if err := p.vault.MoveToDone(post.Path, "success"); err != nil {
			return processed, err
		}
		if err := p.logAction(cid, post, "success", text); err != nil {
			return processed, err
		}
		processed++
	}
	return processed, nil
}

// Run polls Approved/ until the context is cancelled. wake, when non-nil,
// starts a cycle early (fed by the directory trigger).
func (p *Poster) Run(ctx context.Context, interval time.Duration, wake <-chan struct{}) error {
	log.Printf("linkedin poster started (interval %s)", interval)
	for {
		if n, err := p.ProcessApproved(ctx); err != nil {
			log.Printf("linkedin poster: %v", err)
		} else if n > 0 {
			log.Printf("linkedin poster: processed %d post(s)", n)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		case <-wake:
		}
	}
}

func (p *Poster) findApproved() ([]*models.WorkItem, error) {
	items, err := p.vault.List(p.vault.ApprovedDir())
	if err != nil {
		return nil, fmt.Errorf("scanning approved posts: %w", err)
	}
	var posts []*models.WorkItem
	for _, item := range items {
		if item.Type == models.TypeLinkedInPost {
			posts = append(posts, item)
		}
	}
	max := p.cfg.MaxPostsPerRun
	if max == 0 {
		max = defaultMaxPostsPerRun
	}
	if len(posts) > max {
		posts = posts[:max]
	}
	return posts, nil
}

func (p *Poster) openFeed(ctx context.Context) (browser.Page, error) {
	page, err := p.pages(ctx)
	if err != nil {
		return nil, fmt.Errorf("opening linkedin page: %w", err)
	}
	if err := page.Navigate(ctx, feedURL); err != nil {
		return nil, fmt.Errorf("navigating to feed: %w", err)
	}
	if state := p.probe.Detect(page); state != models.StateReady {
		_ = page.Screenshot(p.vault.DebugScreenshotPath("poster"))
		return nil, fmt.Errorf("linkedin session %s: run `aide linkedin --setup` to re-login", state)
	}
	return page, nil
}

// publish drives the composer: open the share box, type the content,
// click Post. In dev mode the whole flow is simulated.
func (p *Poster) publish(ctx context.Context, page browser.Page, text string) error {
	if p.devMode {
		log.Printf("linkedin: [dev_mode] would post %d chars: %.100s", len(text), text)
		return nil
	}

	if !clickFirst(page, composerSelectors) {
		_ = page.Screenshot(p.vault.DebugScreenshotPath("composer_not_found"))
		return fmt.Errorf("post composer trigger not found")
	}
	p.wait(ctx)

	if !typeFirst(page, editorSelectors, text) {
		_ = page.Screenshot(p.vault.DebugScreenshotPath("editor_not_found"))
		return fmt.Errorf("post text editor not found")
	}
	p.wait(ctx)

	if !clickFirst(page, postButtonSelectors) {
		_ = page.Screenshot(p.vault.DebugScreenshotPath("post_button_not_found"))
		return fmt.Errorf("post button not found")
	}
	p.wait(ctx)
	return nil
}

func (p *Poster) wait(ctx context.Context) {
	if p.settle <= 0 {
		return
	}
	select {
	case <-ctx.Done():
	case <-time.After(p.settle):
	}
}

func (p *Poster) logAction(cid string, post *models.WorkItem, result, text string) error {
	return p.vault.Actions().Append(models.AuditEntry{
		CorrelationID: cid,
		Actor:         "linkedin_poster",
		ActionType:    "linkedin_post",
		Target:        filepath.Base(post.Path),
		Result:        result,
		Parameters: map[string]any{
			"content_length":  len(text),
			"content_preview": truncate(text, 100),
			"dry_run":         p.dryRun,
			"dev_mode":        p.devMode,
		},
	})
}

func (p *Poster) logFailure(cid string, post *models.WorkItem, err error) {
	_ = p.vault.Errors().Append(models.AuditEntry{
		CorrelationID: cid,
		Actor:         "linkedin_poster",
		ActionType:    "error",
		Target:        filepath.Base(post.Path),
		Result:        "failure",
		Error:         err.Error(),
	})
}

// postText strips a leading markdown heading ("# Post Content") from the
// approved file's body, leaving just the text to publish.
func postText(body string) string {
	lines := strings.Split(strings.TrimSpace(body), "\n")
	var clean []string
	for _, line := range lines {
		if len(clean) == 0 && strings.HasPrefix(strings.TrimSpace(line), "# ") {
			continue
		}
		clean = append(clean, line)
	}
	return strings.TrimSpace(strings.Join(clean, "\n"))
}

func clickFirst(root browser.Queryable, selectors []string) bool {
	for _, sel := range selectors {
		el, ok := root.Query(sel)
		if !ok {
			continue
		}
		if err := el.Click(); err != nil {
			continue
		}
		return true
	}
	return false
}

func typeFirst(root browser.Queryable, selectors []string, text string) bool {
	for _, sel := range selectors {
		el, ok := root.Query(sel)
		if !ok {
			continue
		}
		if err := el.Click(); err != nil {
			continue
		}
		if err := el.TypeText(text); err != nil {
			continue
		}
		return true
	}
	return false
}
