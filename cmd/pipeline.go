package cmd

import (
	"context"
	"net/http"

	"github.com/spf13/cobra"
	"golang.org/x/oauth2"

	"github.com/flushfinder/flushfinder/internal/auth"
	"github.com/flushfinder/flushfinder/internal/config"
	"github.com/flushfinder/flushfinder/internal/facilities"
	"github.com/flushfinder/flushfinder/internal/logging"
	"github.com/flushfinder/flushfinder/internal/restroom"
)

// authenticate fetches a fresh bearer token.
func (e *environment) authenticate(ctx context.Context) (*oauth2.Token, error) {
	a := auth.NewAuthenticator(
		auth.Credentials{ClientID: e.cfg.API.ClientID, ClientSecret: e.cfg.API.ClientSecret},
		e.cfg.API.TokenURL,
		e.cfg.API.Scope,
		auth.WithHTTPClient(&http.Client{Timeout: e.cfg.API.Timeout}),
		auth.WithMetrics(e.provider.Metrics()),
		auth.WithLogger(logging.NewSlogAdapter(e.logger)),
	)
	return a.Token(ctx)
}

// facilitiesClient builds the Buildings API client.
func (e *environment) facilitiesClient() *facilities.Client {
	return facilities.NewClient(e.cfg.API.BaseURL,
		facilities.WithTimeout(e.cfg.API.Timeout),
		facilities.WithMetrics(e.provider.Metrics()),
		facilities.WithLogger(logging.NewSlogAdapter(e.logger)),
	)
}

// restroomFilter builds the filter configured in cfg.Filter.
func (e *environment) restroomFilter() *restroom.Filter {
	opts := []restroom.Option{restroom.WithExclusions(e.cfg.Filter.ApplyExclusions)}
	if len(e.cfg.Filter.Include) > 0 {
		opts = append(opts, restroom.WithInclude(e.cfg.Filter.Include...))
	}
	if len(e.cfg.Filter.Exclude) > 0 {
		opts = append(opts, restroom.WithExclude(e.cfg.Filter.Exclude...))
	}
	// after WithInclude, which would drop it
	if e.cfg.Filter.IncludeToilet {
		opts = append(opts, restroom.WithToilet())
	}
	return restroom.New(opts...)
}

// filterFlags are the restroom filter flags shared by report and rooms.
type filterFlags struct {
	includeToilet   bool
	applyExclusions bool
}

func (f *filterFlags) register(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&f.includeToilet, "include-toilet", false, "Also treat rooms described as toilets as restrooms")
	cmd.Flags().BoolVar(&f.applyExclusions, "apply-exclusions", false, "Drop mechanical, electrical, janitor and custodial rooms")
}

func (f *filterFlags) apply(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("include-toilet") {
		cfg.Filter.IncludeToilet = f.includeToilet
	}
	if cmd.Flags().Changed("apply-exclusions") {
		cfg.Filter.ApplyExclusions = f.applyExclusions
	}
}
