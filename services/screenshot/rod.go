// Package shotsvc provides the screenshot capturers.
package shotsvc

import (
	"context"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/pkg/errors"

	"github.com/ocwc/oeweek2022/core"
	"github.com/ocwc/oeweek2022/core/screenshot"
)

// RodCapturer renders pages with a headless Chrome.
// A browser is launched for every capture.
type RodCapturer struct {
	bin string
}

var _ screenshot.Capturer = (*RodCapturer)(nil)

func NewRodCapturer(conf *core.Config) *RodCapturer {
	return &RodCapturer{bin: conf.Screenshots.ChromeBin}
}

func (c *RodCapturer) Capture(ctx context.Context, url string, maxWidth, maxHeight int) ([]byte, error) {
	l := launcher.New().Headless(true).Context(ctx)
	if c.bin != "" {
		l = l.Bin(c.bin)
	}
	defer l.Cleanup()

	controlURL, err := l.Launch()
	if err != nil {
		return nil, errors.Wrap(err, "launching chrome")
	}

	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if err = browser.Connect(); err != nil {
		return nil, errors.Wrap(err, "connecting to chrome")
	}
	defer func() { _ = browser.Close() }()

	page, err := browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, errors.Wrap(err, "opening page")
	}
	err = page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             maxWidth,
		Height:            maxHeight,
		DeviceScaleFactor: 1,
	})
	if err != nil {
		return nil, errors.Wrap(err, "setting viewport")
	}
	if err = page.Navigate(url); err != nil {
		return nil, errors.Wrap(err, "loading page")
	}
	if err = page.WaitLoad(); err != nil {
		return nil, errors.Wrap(err, "loading page")
	}

	return page.Screenshot(false, &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
		Clip: &proto.PageViewport{
			Width:  float64(maxWidth),
			Height: float64(maxHeight),
			Scale:  1,
		},
	})
}
