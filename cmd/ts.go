package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/openmeteo/enhydris-api-client/pkg/enhydris"
	"github.com/openmeteo/enhydris-api-client/pkg/hts"
)

var (
	tsStart string
	tsEnd   string
	tsFile  string
	tsFlat  bool
)

func init() {
	tsCmd := &cobra.Command{
		Use:   "ts",
		Short: "Time-series data operations",
		Long: "Operate on a time series, addressed either hierarchically as\n" +
			"<station> <group> <series>, or with --flat as a single legacy <series> id.",
	}

	readCmd := &cobra.Command{
		Use:   "read <station> <group> <series>",
		Short: "Download records and print them as timestamp,value,flags lines",
		RunE:  runTsRead,
	}
	readCmd.Flags().StringVar(&tsStart, "start", "", "inclusive start bound (e.g. 2019-06-12T00:00:00)")
	readCmd.Flags().StringVar(&tsEnd, "end", "", "inclusive end bound")

	writeCmd := &cobra.Command{
		Use:   "write <station> <group> <series>",
		Short: "Upload timestamp,value,flags lines and print the server acknowledgement",
		RunE:  runTsWrite,
	}
	writeCmd.Flags().StringVarP(&tsFile, "file", "f", "-", "file with records, - for stdin")

	endDateCmd := &cobra.Command{
		Use:   "enddate <station> <group> <series>",
		Short: "Print the timestamp of the most recent record, if any",
		RunE:  runTsEndDate,
	}

	for _, c := range []*cobra.Command{readCmd, writeCmd, endDateCmd} {
		c.Flags().BoolVar(&tsFlat, "flat", false, "use the legacy flat api/tsdata/{series}/ endpoint")
		tsCmd.AddCommand(c)
	}
	rootCmd.AddCommand(tsCmd)
}

// tsArgs resolves the positional series address, which is one id with
// --flat and station/group/series without.
func tsArgs(args []string) (stationID, groupID, tsID int, err error) {
	want := 3
	if tsFlat {
		want = 1
	}
	if len(args) != want {
		return 0, 0, 0, fmt.Errorf("expected %d id argument(s), got %d", want, len(args))
	}
	ids := make([]int, len(args))
	for i, a := range args {
		if ids[i], err = strconv.Atoi(a); err != nil {
			return 0, 0, 0, fmt.Errorf("invalid id %q", a)
		}
	}
	if tsFlat {
		return 0, 0, ids[0], nil
	}
	return ids[0], ids[1], ids[2], nil
}

func runTsRead(cmd *cobra.Command, args []string) error {
	stationID, groupID, tsID, err := tsArgs(args)
	if err != nil {
		return err
	}
	var start, end *time.Time
	if start, err = parseBound(tsStart); err != nil {
		return err
	}
	if end, err = parseBound(tsEnd); err != nil {
		return err
	}
	return withClient(func(ctx context.Context, client *enhydris.Client) error {
		var block *hts.Block
		if tsFlat {
			block, err = client.Timeseries.ReadFlat(ctx, tsID)
		} else {
			block, err = client.Timeseries.Read(ctx, stationID, groupID, tsID, start, end)
		}
		if err != nil {
			return err
		}
		return block.Dump(os.Stdout)
	})
}

func runTsWrite(cmd *cobra.Command, args []string) error {
	stationID, groupID, tsID, err := tsArgs(args)
	if err != nil {
		return err
	}
	var in io.Reader = os.Stdin
	if tsFile != "-" {
		f, err := os.Open(tsFile)
		if err != nil {
			return err
		}
		defer f.Close()
		in = f
	}
	block, err := hts.Parse(in)
	if err != nil {
		return err
	}
	return withClient(func(ctx context.Context, client *enhydris.Client) error {
		var ack string
		if tsFlat {
			ack, err = client.Timeseries.WriteFlat(ctx, tsID, block)
		} else {
			ack, err = client.Timeseries.Write(ctx, stationID, groupID, tsID, block)
		}
		if err != nil {
			return err
		}
		if ack != "" {
			fmt.Println(ack)
		}
		return nil
	})
}

func runTsEndDate(cmd *cobra.Command, args []string) error {
	stationID, groupID, tsID, err := tsArgs(args)
	if err != nil {
		return err
	}
	return withClient(func(ctx context.Context, client *enhydris.Client) error {
		var end *time.Time
		if tsFlat {
			end, err = client.Timeseries.EndDateFlat(ctx, tsID)
		} else {
			end, err = client.Timeseries.EndDate(ctx, stationID, groupID, tsID)
		}
		if err != nil {
			return err
		}
		if end == nil {
			fmt.Println("no data")
			return nil
		}
		fmt.Println(end.Format(hts.TimestampFormat))
		return nil
	})
}

func parseBound(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := hts.ParseTimestamp(s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
