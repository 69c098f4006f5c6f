// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the image-processor CLI.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// version is set at build time via ldflags.
var version = "dev"

// rootCmd is the base command for the image-processor CLI.
var rootCmd = &cobra.Command{
	Use:   "image-processor",
	Short: "Batch image conversion and compression via imagestool.com",
	Long: `image-processor batch-converts and batch-compresses images by driving
the imagestool.com pages through a headless Chrome instance: it uploads local
files, waits for the server-side processing to finish, and downloads the
results.

The full pipeline (convert, then compress) is the run command; convert and
compress run a single step. The conversion and compression algorithms live
server-side and are not part of this tool.`,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./image-processor.yaml or ~/.config/image-processor/config.yaml)")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("image-processor")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "image-processor"))
		}
	}

	viper.SetEnvPrefix("IMAGE_PROCESSOR")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
