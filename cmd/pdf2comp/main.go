// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the pdf2comp CLI.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/pdf2comp/internal/secrets"
	"github.com/pdiddy/pdf2comp/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds API keys loaded from .secrets/ at startup.
var loadedSecrets secrets.Secrets

// Configuration keys. Each can be set in pdf2comp.yaml, through a
// PDF2COMP_* environment variable, or with the bound flag.
const (
	keyDocsDir        = "docs_dir"
	keySymbolsDir     = "symbols_dir"
	keyLLMBaseURL     = "llm.base_url"
	keyLLMModel       = "llm.model"
	keyLLMAPIKey      = "llm.api_key"
	keyLLMTemperature = "llm.temperature"
	keyLLMMaxRetries  = "llm.max_retries"
	keyLLMTimeout     = "llm.timeout"
	keyCorrectionsDB  = "corrections.db_path"
	keyCorrectionsOut = "corrections.export_dir"
)

var rootCmd = &cobra.Command{
	Use:   "pdf2comp",
	Short: "Turn component datasheets into KiCad symbols",
	Long: `pdf2comp takes datasheet Markdown produced by a PDF converter, splits it
into labelled sections, extracts the component and pin table with a language
model, and writes a KiCad symbol library for the part.

Stages are subcommands: segment, extract, symbol, and corrections.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		s, err := secrets.Load(".secrets/")
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			keys := s.Keys()
			sort.Strings(keys)
			fmt.Fprintf(os.Stderr, "Loaded secrets: %v\n", keys)
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./pdf2comp.yaml or ~/.config/pdf2comp/config.yaml)")

	viper.SetDefault(keyDocsDir, "docs")
	viper.SetDefault(keySymbolsDir, "symbols")
	viper.SetDefault(keyLLMBaseURL, "http://localhost:8000/v1")
	viper.SetDefault(keyLLMModel, "Qwen/Qwen2.5-Coder-32B-Instruct")
	viper.SetDefault(keyLLMTemperature, 0.1)
	viper.SetDefault(keyLLMMaxRetries, 3)
	viper.SetDefault(keyLLMTimeout, 5*time.Minute)
	viper.SetDefault(keyCorrectionsDB, "pdf2comp.db")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("pdf2comp")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "pdf2comp"))
		}
	}

	viper.SetEnvPrefix("PDF2COMP")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// bindFlag ties a flag to a configuration key so the flag overrides file
// and environment values only when set.
func bindFlag(cmd *cobra.Command, key, flag string) {
	f := cmd.Flags().Lookup(flag)
	if f == nil {
		f = cmd.PersistentFlags().Lookup(flag)
	}
	if err := viper.BindPFlag(key, f); err != nil {
		panic(fmt.Sprintf("binding flag %s: %v", flag, err))
	}
}

// pipelineConfig assembles typed stage configuration from viper.
func pipelineConfig() types.PipelineConfig {
	return types.PipelineConfig{
		Extraction: types.ExtractionConfig{
			LLMConfig: types.LLMConfig{
				HTTPConfig: types.HTTPConfig{
					Timeout:   viper.GetDuration(keyLLMTimeout),
					UserAgent: "pdf2comp/" + version,
				},
				BaseURL:     viper.GetString(keyLLMBaseURL),
				Model:       viper.GetString(keyLLMModel),
				APIKey:      loadedSecrets.Get(secrets.LLMAPIKey, viper.GetString(keyLLMAPIKey)),
				Temperature: viper.GetFloat64(keyLLMTemperature),
				MaxRetries:  viper.GetInt(keyLLMMaxRetries),
			},
			DocsDir: viper.GetString(keyDocsDir),
		},
		Symbol: types.SymbolConfig{
			OutputDir: viper.GetString(keySymbolsDir),
		},
		Corrections: types.CorrectionConfig{
			DBPath:    viper.GetString(keyCorrectionsDB),
			ExportDir: viper.GetString(keyCorrectionsOut),
		},
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
