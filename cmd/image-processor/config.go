// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/regtet/image-processor/pkg/types"
)

// outputDirName is the default output folder created inside the input folder.
const outputDirName = "processed"

// addProcessingFlags registers the flags shared by run, convert, and compress.
func addProcessingFlags(cmd *cobra.Command) {
	cmd.Flags().String("output", "", "output folder (default <folder>/"+outputDirName+")")
	cmd.Flags().Int("batch-size", 0, "images uploaded per page visit (default 10)")
	cmd.Flags().Bool("show-browser", false, "show the browser window instead of running headless")
	cmd.Flags().Duration("wait-timeout", 0, "how long to wait for server-side processing (default 2m)")
}

// buildConfig resolves the processing configuration for folder from
// defaults, the viper config file, and command flags, in that order. The
// selectors and page URLs are the file-configurable part: the remote site's
// markup shifts, and a config edit beats a rebuild.
func buildConfig(cmd *cobra.Command, folder string) (types.Config, error) {
	cfg := types.DefaultConfig()
	cfg.InputDir = folder

	if v := viper.GetString("convert_url_template"); v != "" {
		cfg.ConvertURLTemplate = v
	}
	if v := viper.GetString("compress_url"); v != "" {
		cfg.CompressURL = v
	}
	if v := viper.GetString("selectors.file_input"); v != "" {
		cfg.Selectors.FileInput = v
	}
	if v := viper.GetString("selectors.download_ready"); v != "" {
		cfg.Selectors.DownloadReady = v
	}
	if v := viper.GetString("selectors.download_all"); v != "" {
		cfg.Selectors.DownloadAll = v
	}
	if v := viper.GetString("selectors.download_item"); v != "" {
		cfg.Selectors.DownloadItem = v
	}

	// Timing keys use IsSet so a config file can legitimately zero a delay.
	if viper.IsSet("navigate_timeout") {
		cfg.NavigateTimeout = viper.GetDuration("navigate_timeout")
	}
	if viper.IsSet("settle_delay") {
		cfg.SettleDelay = viper.GetDuration("settle_delay")
	}
	if viper.IsSet("process_delay") {
		cfg.ProcessDelay = viper.GetDuration("process_delay")
	}
	if viper.IsSet("ready_timeout") {
		cfg.ReadyTimeout = viper.GetDuration("ready_timeout")
	}
	if viper.IsSet("download_timeout") {
		cfg.DownloadTimeout = viper.GetDuration("download_timeout")
	}
	if viper.IsSet("item_timeout") {
		cfg.ItemTimeout = viper.GetDuration("item_timeout")
	}

	if f := cmd.Flags().Lookup("format"); f != nil {
		format := types.ImageFormat(strings.ToLower(f.Value.String()))
		if !format.Valid() {
			return cfg, fmt.Errorf("unsupported format %q (use webp, png, jpg, or avif)", f.Value.String())
		}
		cfg.Format = format
	}

	out, _ := cmd.Flags().GetString("output")
	if out == "" {
		out = filepath.Join(folder, outputDirName)
	}
	cfg.OutputDir = out

	if batchSize, _ := cmd.Flags().GetInt("batch-size"); batchSize > 0 {
		cfg.BatchSize = batchSize
	}
	if show, _ := cmd.Flags().GetBool("show-browser"); show {
		cfg.Browser.Headless = false
	}
	if waitTimeout, _ := cmd.Flags().GetDuration("wait-timeout"); waitTimeout > 0 {
		cfg.ReadyTimeout = waitTimeout
	}

	return cfg, nil
}
