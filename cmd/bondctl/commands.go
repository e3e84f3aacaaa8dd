package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"multinic-bond/internal/application/usecases"
	"multinic-bond/internal/domain/entities"
	"multinic-bond/internal/infrastructure/api"
	"multinic-bond/internal/infrastructure/services"

	"github.com/spf13/cobra"
)

func interfacesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "interfaces",
		Short: "List active physical interfaces",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ifaces, err := newClient().Interfaces(cmd.Context())
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(cmd.OutOrStdout(), ifaces)
			}
			return printInterfaces(cmd.OutOrStdout(), ifaces)
		},
	}
}

func countersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "counters IFACE",
		Short: "Show the byte counters of one interface",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			counters, err := newClient().Counters(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(cmd.OutOrStdout(), counters)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: sent %d bytes, received %d bytes\n", counters.Name, counters.SentBytes, counters.RecvBytes)
			return nil
		},
	}
}

func stateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "state",
		Short: "Show the bonding transaction state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			state, err := newClient().State(cmd.Context())
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(cmd.OutOrStdout(), state)
			}
			printState(cmd.OutOrStdout(), state)
			return nil
		},
	}
}

func applyCmd() *cobra.Command {
	var mode string
	cmd := &cobra.Command{
		Use:   "apply --mode bonded|single-active IFACE...",
		Short: "Apply a bonding configuration to the selected interfaces",
		Long: "Apply a bonding configuration. In single-active mode the first interface is the target\n" +
			"and the rest are deprioritized. On failure the agent rolls back to the captured snapshot.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := newClient().Apply(cmd.Context(), mode, args)
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(cmd.OutOrStdout(), result)
			}
			printApplyResult(cmd.OutOrStdout(), result)
			return nil
		},
	}
	cmd.Flags().StringVar(&mode, "mode", string(entities.ModeBonded), "bonding mode (bonded, single-active)")
	return cmd
}

func stopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Restore the captured configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			result, err := newClient().Stop(cmd.Context())
			if result != nil {
				if jsonOutput {
					if perr := printJSON(cmd.OutOrStdout(), result); perr != nil {
						return perr
					}
				} else {
					printStopResult(cmd.OutOrStdout(), result)
				}
			}
			return err
		},
	}
}

func speedsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "speeds",
		Short: "Show the latest per-interface throughput",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			samples, err := newClient().Speeds(cmd.Context())
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(cmd.OutOrStdout(), samples)
			}
			return printSpeeds(cmd.OutOrStdout(), samples)
		},
	}
}

func watchCmd() *cobra.Command {
	var topics []string
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Stream throughput samples and state changes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			return newClient().Watch(cmd.Context(), topics, func(msg api.StreamMessage) {
				if jsonOutput {
					_ = printJSON(out, msg)
					return
				}
				printStreamMessage(out, msg)
			})
		},
	}
	cmd.Flags().StringSliceVar(&topics, "topics", []string{api.TopicSpeed, api.TopicState}, "topics to subscribe to")
	return cmd
}

func historyCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent apply/stop transactions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			records, err := newClient().History(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(cmd.OutOrStdout(), records)
			}
			return printHistory(cmd.OutOrStdout(), records)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "number of records")
	return cmd
}

func journalCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "journal",
		Short: "Show the most recently journaled snapshot",
		Long: "Show the metrics captured before the last apply. The journal is a manual recovery aid:\n" +
			"after an agent restart the captured values can be re-applied by hand.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			record, err := newClient().LatestJournal(cmd.Context())
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(cmd.OutOrStdout(), record)
			}
			return printJournal(cmd.OutOrStdout(), record)
		},
	}
}

// 출력 헬퍼

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printInterfaces(w io.Writer, ifaces []api.InterfaceView) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tSENT\tRECV\tADDRESSES")
	for _, iface := range ifaces {
		var addrs []string
		for _, a := range iface.Addresses {
			s := a.Address
			if a.Gateway != "" {
				s += " via " + a.Gateway
			}
			addrs = append(addrs, s)
		}
		fmt.Fprintf(tw, "%s\t%d\t%d\t%s\n", iface.Name, iface.SentBytes, iface.RecvBytes, strings.Join(addrs, ", "))
	}
	return tw.Flush()
}

func printState(w io.Writer, state *usecases.StateView) {
	fmt.Fprintf(w, "State:     %s\n", state.State)
	if state.Mode != "" {
		fmt.Fprintf(w, "Mode:      %s\n", state.Mode)
	}
	if len(state.Selection) > 0 {
		fmt.Fprintf(w, "Selection: %s\n", strings.Join(state.Selection, ", "))
	}
	if state.SnapshotID != "" {
		fmt.Fprintf(w, "Snapshot:  %s\n", state.SnapshotID)
	}
	if state.State == entities.StateIdle && state.PendingRestore {
		fmt.Fprintln(w, "Warning:   previous restore was incomplete; check the agent log and snapshot journal")
	}
}

func printApplyResult(w io.Writer, result *usecases.ApplyResult) {
	fmt.Fprintf(w, "Applied %s to %s (snapshot %s)\n", result.Mode, strings.Join(result.Selection, ", "), result.SnapshotID)
	if result.Target != "" {
		route := "not installed"
		if result.RouteInstalled {
			route = "installed"
		}
		fmt.Fprintf(w, "Target %s, default route %s\n", result.Target, route)
	}
	for _, warning := range result.Warnings {
		fmt.Fprintf(w, "warning: %s\n", warning)
	}
}

func printStopResult(w io.Writer, result *usecases.StopResult) {
	fmt.Fprintf(w, "Restored %d interface metric(s) from snapshot %s\n", result.Restored, result.SnapshotID)
	for _, e := range result.Errors {
		fmt.Fprintf(w, "restore error: %s\n", e)
	}
}

func printSpeeds(w io.Writer, samples []entities.SpeedSample) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tSENT KB/s\tRECV KB/s")
	for _, s := range samples {
		fmt.Fprintf(tw, "%s\t%.1f\t%.1f\n", s.InterfaceName, s.SentRateKBps, s.RecvRateKBps)
	}
	return tw.Flush()
}

func printStreamMessage(w io.Writer, msg api.StreamMessage) {
	switch msg.Topic {
	case api.TopicSpeed:
		var s entities.SpeedSample
		if json.Unmarshal(msg.Data, &s) != nil {
			return
		}
		fmt.Fprintf(w, "%s  %-12s sent %8.1f KB/s  recv %8.1f KB/s\n",
			s.Timestamp.Local().Format(time.TimeOnly), s.InterfaceName, s.SentRateKBps, s.RecvRateKBps)
	case api.TopicState:
		var state usecases.StateView
		if json.Unmarshal(msg.Data, &state) != nil {
			return
		}
		fmt.Fprintf(w, "%s  state -> %s\n", time.Now().Format(time.TimeOnly), state.State)
	default:
		fmt.Fprintf(w, "%s: %s\n", msg.Topic, msg.Data)
	}
}

func printHistory(w io.Writer, records []entities.TransactionRecord) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "STARTED\tOP\tMODE\tINTERFACES\tRESULT\tERROR")
	for _, r := range records {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			r.StartedAt.Local().Format(time.DateTime), r.Operation, r.Mode,
			strings.Join(r.Interfaces, ","), r.Result, r.Error)
	}
	return tw.Flush()
}


func printJournal(w io.Writer, record *services.JournalRecord) error {
	fmt.Fprintf(w, "Snapshot %s captured %s\n", record.ID, record.CapturedAt.Local().Format(time.DateTime))
	fmt.Fprintf(w, "Mode %s, selection %s\n", record.Mode, strings.Join(record.Selection, ", "))

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tMETRIC")
	for _, e := range record.Entries {
		metric := strconv.Itoa(e.Metric)
		if !e.Known {
			metric = "unknown"
		}
		fmt.Fprintf(tw, "%s\t%s\n", e.Name, metric)
	}
	return tw.Flush()
}
