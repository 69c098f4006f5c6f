// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// ImageFormat identifies a target conversion format supported by the
// conversion page (to.imagestool.com/to-<format>).
type ImageFormat string

const (
	FormatWebP ImageFormat = "webp"
	FormatPNG  ImageFormat = "png"
	FormatJPG  ImageFormat = "jpg"
	FormatAVIF ImageFormat = "avif"
)

// Valid reports whether f is one of the supported target formats.
func (f ImageFormat) Valid() bool {
	switch f {
	case FormatWebP, FormatPNG, FormatJPG, FormatAVIF:
		return true
	}
	return false
}

// BrowserConfig holds settings for the Chrome session.
type BrowserConfig struct {
	// Headless controls whether Chrome runs without a visible window.
	Headless bool `json:"headless" yaml:"headless"`

	// StagingDir is the directory Chrome stages downloads into before they
	// are renamed into a step's output directory.
	StagingDir string `json:"staging_dir" yaml:"staging_dir"`
}

// Selectors holds the CSS selectors used to drive a processing page. The
// remote site's markup is not a stable contract, so all of these can be
// overridden from the config file.
type Selectors struct {
	// FileInput matches the upload input element.
	FileInput string `json:"file_input" yaml:"file_input"`

	// DownloadReady matches any control indicating processing has finished.
	DownloadReady string `json:"download_ready" yaml:"download_ready"`

	// DownloadAll matches the download-everything control.
	DownloadAll string `json:"download_all" yaml:"download_all"`

	// DownloadItem matches per-file download buttons, used as a fallback
	// when no download-all control is present.
	DownloadItem string `json:"download_item" yaml:"download_item"`
}

// DefaultSelectors returns the selector set matching the site's current markup.
func DefaultSelectors() Selectors {
	return Selectors{
		FileInput:     `input[type="file"]`,
		DownloadReady: `.download-btn, [class*="download"]`,
		DownloadAll:   `.download-all, [class*="downloadAll"]`,
		DownloadItem:  `.download-btn, [class*="download"]:not([class*="all"])`,
	}
}

// StepConfig holds everything needed to run one upload/poll/download step
// against a processing page.
type StepConfig struct {
	// Name labels the step in status output ("convert" or "compress").
	Name string `json:"name" yaml:"name"`

	// URL is the processing page address.
	URL string `json:"url" yaml:"url"`

	// OutDir is where downloaded results are written.
	OutDir string `json:"out_dir" yaml:"out_dir"`

	// Selectors drives element lookup on the page.
	Selectors Selectors `json:"selectors" yaml:"selectors"`

	// NavigateTimeout bounds the initial page load (default 60s).
	NavigateTimeout time.Duration `json:"navigate_timeout" yaml:"navigate_timeout"`

	// SettleDelay is the fixed pause after load and after processing
	// completes, giving the page time to render (default 2s).
	SettleDelay time.Duration `json:"settle_delay" yaml:"settle_delay"`

	// ProcessDelay is the fixed pause after upload before polling for the
	// download-ready indicator (default 3s).
	ProcessDelay time.Duration `json:"process_delay" yaml:"process_delay"`

	// ReadyTimeout bounds the wait for server-side processing (default 120s).
	ReadyTimeout time.Duration `json:"ready_timeout" yaml:"ready_timeout"`

	// DownloadTimeout bounds the download-all transfer (default 60s).
	DownloadTimeout time.Duration `json:"download_timeout" yaml:"download_timeout"`

	// ItemTimeout bounds each per-file fallback download (default 30s).
	ItemTimeout time.Duration `json:"item_timeout" yaml:"item_timeout"`
}

// Config groups all settings for a processing run.
type Config struct {
	// InputDir is the folder scanned for images.
	InputDir string `json:"input_dir" yaml:"input_dir"`

	// OutputDir is the base output folder (default <InputDir>/processed).
	// It contains converted/, compressed/, and the download staging dir.
	OutputDir string `json:"output_dir" yaml:"output_dir"`

	// Format is the target conversion format.
	Format ImageFormat `json:"format" yaml:"format"`

	// BatchSize is the number of images uploaded per page visit (default 10).
	BatchSize int `json:"batch_size" yaml:"batch_size"`

	// ConvertURLTemplate builds the conversion page URL from Format
	// (default "https://to.imagestool.com/to-%s").
	ConvertURLTemplate string `json:"convert_url_template" yaml:"convert_url_template"`

	// CompressURL is the compression page URL
	// (default "https://imagestool.com/compress-image").
	CompressURL string `json:"compress_url" yaml:"compress_url"`

	Browser   BrowserConfig `json:"browser" yaml:"browser"`
	Selectors Selectors     `json:"selectors" yaml:"selectors"`

	// Timing overrides applied to both steps.
	NavigateTimeout time.Duration `json:"navigate_timeout" yaml:"navigate_timeout"`
	SettleDelay     time.Duration `json:"settle_delay" yaml:"settle_delay"`
	ProcessDelay    time.Duration `json:"process_delay" yaml:"process_delay"`
	ReadyTimeout    time.Duration `json:"ready_timeout" yaml:"ready_timeout"`
	DownloadTimeout time.Duration `json:"download_timeout" yaml:"download_timeout"`
	ItemTimeout     time.Duration `json:"item_timeout" yaml:"item_timeout"`
}

// DefaultConfig returns the configuration matching the original workflow
// defaults: webp target, batches of ten, headless Chrome.
func DefaultConfig() Config {
	return Config{
		Format:             FormatWebP,
		BatchSize:          10,
		ConvertURLTemplate: "https://to.imagestool.com/to-%s",
		CompressURL:        "https://imagestool.com/compress-image",
		Browser: BrowserConfig{
			Headless: true,
		},
		Selectors:       DefaultSelectors(),
		NavigateTimeout: 60 * time.Second,
		SettleDelay:     2 * time.Second,
		ProcessDelay:    3 * time.Second,
		ReadyTimeout:    120 * time.Second,
		DownloadTimeout: 60 * time.Second,
		ItemTimeout:     30 * time.Second,
	}
}
