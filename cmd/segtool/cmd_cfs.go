package main

import (
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/balzaczyy/segstore/index"
	"github.com/balzaczyy/segstore/store"
	"github.com/balzaczyy/segstore/util"
)

func newCompoundCmd(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cfs",
		Short: "Work with compound files",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "ls <segment>",
			Short: "List the entries of a segment's compound file",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return g.withStore(func(s store.Store) error {
					return listCompound(cmd, s, args[0])
				})
			},
		},
		&cobra.Command{
			Use:   "pack <segment> [file...]",
			Short: "Pack the files of a segment into its compound file",
			Long: `Packs the named files, or every file of the segment when none are
named, into <segment>.cfs and removes them.`,
			Args: cobra.MinimumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return g.withStore(func(s store.Store) error {
					return packCompound(cmd, s, args[0], args[1:])
				})
			},
		},
	)
	return cmd
}

func compoundName(segment string) string {
	return util.SegmentFileName(segment, "", index.COMPOUND_EXTENSION)
}

func listCompound(cmd *cobra.Command, s store.Store, segment string) error {
	cs, err := store.OpenCompoundStore(s, compoundName(segment))
	if err != nil {
		return err
	}
	defer cs.Close()

	entries := cs.Entries()
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	for _, name := range cs.Names() {
		e := entries[name]
		fmt.Fprintf(tw, "%v\t%v\t%v\n", name, e.Offset, e.Length)
	}
	return tw.Flush()
}

func packCompound(cmd *cobra.Command, s store.Store, segment string, files []string) error {
	if len(files) == 0 {
		cfs := compoundName(segment)
		err := s.Each(func(name string) error {
			if strings.HasPrefix(name, segment+".") && name != cfs {
				files = append(files, name)
			}
			return nil
		})
		if err != nil {
			return err
		}
		sort.Strings(files)
	}
	if len(files) == 0 {
		return util.Errorf(util.ErrFileNotFound, "no files for segment %v", segment)
	}
	if err := index.CreateCompoundFile(s, segment, files); err != nil {
		return err
	}
	log.Infof("Packed %v files into %v", len(files), compoundName(segment))
	fmt.Fprintf(cmd.OutOrStdout(), "packed %v files into %v\n", len(files), compoundName(segment))
	return nil
}
