package renderer

import (
	"context"
	"time"

	"github.com/chromedp/chromedp"
)

const USER_AGENT = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/118.0.0.0 Safari/537.36"

const DefaultChromePath = "/usr/bin/chromium-browser"

// Renderer 는 JS 렌더링이 필요한 참고 페이지를 headless chrome 으로 가져온다.
type Renderer struct {
	chromePath string
	timeout    time.Duration
}

func New(chromePath string, timeout time.Duration) *Renderer {
	if chromePath == "" {
		chromePath = DefaultChromePath // Docker/Linux 기본
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Renderer{chromePath: chromePath, timeout: timeout}
}

func (r *Renderer) RenderHTML(ctx context.Context, url string) (string, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.ExecPath(r.chromePath),
		chromedp.UserAgent(USER_AGENT),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-crashpad", true),
		chromedp.Flag("no-first-run", true),
		chromedp.Flag("no-default-browser-check", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("headless", true),
	)

	allocCtx, cancel := chromedp.NewExecAllocator(ctx, opts...)
	defer cancel()
	tabCtx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()
	tabCtx, cancel = context.WithTimeout(tabCtx, r.timeout)
	defer cancel()

	var htmlContent string
	err := chromedp.Run(tabCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(1*time.Second),
		chromedp.OuterHTML("html", &htmlContent),
	)
	if err != nil {
		return "", err
	}
	return htmlContent, nil
}
