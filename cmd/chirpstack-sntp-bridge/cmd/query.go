package cmd

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/brocaar/chirpstack-sntp-bridge/internal/clock"
	"github.com/brocaar/chirpstack-sntp-bridge/internal/config"
	"github.com/brocaar/chirpstack-sntp-bridge/internal/crosscheck"
	"github.com/brocaar/chirpstack-sntp-bridge/internal/sntp"
	"github.com/brocaar/chirpstack-sntp-bridge/internal/sntp/refid"
)

type queryOptions struct {
	timeout    time.Duration
	port       int
	setTime    bool
	crossCheck bool
}

var queryOpts queryOptions

var queryCmd = &cobra.Command{
	Use:   "query <host>",
	Short: "Query a single SNTP server and print the sample",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := queryOpts
		if !cmd.Flags().Changed("timeout") && config.C.SNTP.Timeout != 0 {
			opts.timeout = config.C.SNTP.Timeout
		}
		if !cmd.Flags().Changed("port") && config.C.SNTP.Port != 0 {
			opts.port = config.C.SNTP.Port
		}

		return query(cmd.Context(), cmd.OutOrStdout(), args[0], opts, config.C, clock.System{})
	},
}

func init() {
	queryCmd.Flags().DurationVar(&queryOpts.timeout, "timeout", sntp.DefaultTimeout, "exchange timeout")
	queryCmd.Flags().IntVar(&queryOpts.port, "port", sntp.DefaultPort, "server port")
	queryCmd.Flags().BoolVar(&queryOpts.setTime, "set-time", false, "set the system time from a valid sample (requires privileges)")
	queryCmd.Flags().BoolVar(&queryOpts.crossCheck, "cross-check", false, "compare the sample with an independent NTP query")
}

func query(ctx context.Context, w io.Writer, host string, opts queryOptions, conf config.Config, setter clock.Setter) error {
	if ctx == nil {
		ctx = context.Background()
	}

	loc, err := displayLocation(conf.SNTP.DisplayLocation)
	if err != nil {
		return err
	}

	client, err := sntp.NewClientFromHostname(ctx, host, sntp.Config{
		Port:    opts.port,
		Timeout: opts.timeout,
		ReferenceResolver: refid.NewResolver(refid.Config{
			LookupTimeout: conf.SNTP.ReferenceLookup.Timeout,
			CacheTTL:      conf.SNTP.ReferenceLookup.CacheTTL,
			Location:      loc,
		}),
	}, sntp.NetResolver{})
	if err != nil {
		return err
	}

	sample, err := client.Exchange(ctx)
	if sample.RawLength != 0 {
		fmt.Fprintln(w, sample.Format(loc))
	}
	if err != nil {
		return err
	}

	if opts.setTime {
		t, err := clock.Apply(setter, time.Now(), sample.ClockOffsetMs)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "System time set to: %s\n", t.In(loc).Format(sntp.ReportTimeFormat))
	}

	if opts.crossCheck {
		r, err := crosscheck.Query(host, opts.port, opts.timeout)
		if err != nil {
			return errors.Wrap(err, "cross-check error")
		}

		c := crosscheck.Compare(sample, r)
		fmt.Fprintf(w, "Cross-check server: %s\n", r.Server)
		fmt.Fprintf(w, "Cross-check offset: %.3f ms (difference %.3f ms)\n", float64(r.ClockOffset)/float64(time.Millisecond), c.OffsetDiffMs)
		fmt.Fprintf(w, "Cross-check delay: %.3f ms (difference %.3f ms)\n", float64(r.RTT)/float64(time.Millisecond), c.DelayDiffMs)
	}

	return nil
}

func displayLocation(name string) (*time.Location, error) {
	if name == "" {
		return time.Local, nil
	}

	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, errors.Wrap(err, "load display location error")
	}
	return loc, nil
}
