package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/balzaczyy/segstore/index"
	"github.com/balzaczyy/segstore/store"
	"github.com/balzaczyy/segstore/util"
)

const (
	PATH_FIELD = "path"
	BODY_FIELD = "body"
)

func newIndexCmd(g *globals) *cobra.Command {
	var compound bool
	cmd := &cobra.Command{
		Use:   "index <segment> <file>...",
		Short: "Write a segment holding one document per file",
		Long: `Writes a segment with one document per file: the file path, stored and
indexed as a single term, and the file contents, analyzed with the
configured analyzer.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.withStore(func(s store.Store) error {
				return indexFiles(cmd, g, s, args[0], args[1:], compound)
			})
		},
	}
	cmd.Flags().BoolVar(&compound, "compound", false, "pack the segment into a compound file")
	return cmd
}

func indexFiles(cmd *cobra.Command, g *globals, s store.Store, segment string, paths []string, compound bool) error {
	fis, err := g.cfg.FieldInfos()
	if err != nil {
		return err
	}
	pathInfo, err := index.NewFieldInfo(PATH_FIELD, index.STORE_YES, index.INDEX_UNTOKENIZED, index.TERM_VECTOR_NO)
	if err != nil {
		return err
	}
	if err = fis.Add(pathInfo); err != nil {
		return err
	}
	analyzer, err := g.cfg.BuildAnalyzer()
	if err != nil {
		return err
	}
	defer analyzer.Close()

	w, err := index.NewSegmentWriter(s, segment, fis, analyzer, g.cfg.Terms.IndexInterval, g.cfg.Terms.SkipInterval)
	if err != nil {
		return err
	}
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err == nil {
			doc := index.NewDocument()
			if err = doc.Add(index.NewDocField(PATH_FIELD, path)); err == nil {
				if err = doc.Add(index.NewDocField(BODY_FIELD, string(data))); err == nil {
					_, err = w.AddDocument(doc)
				}
			}
		}
		if err != nil {
			return util.CloseWhileHandlingError(err, w)
		}
		log.Debugf("Added %v", path)
	}
	if err = w.Close(); err != nil {
		return err
	}
	if compound {
		if err = index.CreateCompoundFile(s, segment, w.Files()); err != nil {
			return err
		}
	}
	fmt.Fprintf(cmd.OutOrStdout(), "indexed %v documents into %v\n", w.NumDocs(), segment)
	return nil
}

func newTermsCmd(g *globals) *cobra.Command {
	var from string
	cmd := &cobra.Command{
		Use:   "terms <segment> <field>",
		Short: "List the terms of a field with their document frequencies",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.withStore(func(s store.Store) error {
				r, err := index.OpenSegmentReader(s, args[0])
				if err != nil {
					return err
				}
				defer r.Close()
				return listTerms(cmd, r, args[1], from)
			})
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "start at the first term not below this one")
	return cmd
}

func listTerms(cmd *cobra.Command, r *index.SegmentReader, field, from string) error {
	e, err := r.TermEnum(field)
	if err != nil {
		return err
	}
	defer e.Close()

	var term []byte
	if from != "" {
		term, err = e.SkipTo([]byte(from))
	} else {
		term, err = e.Next()
	}
	out := cmd.OutOrStdout()
	for ; term != nil && err == nil; term, err = e.Next() {
		fmt.Fprintf(out, "%s\t%v\n", term, e.TermInfo().DocFreq)
	}
	return err
}

func newDocCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "doc <segment> <number>...",
		Short: "Print the stored fields of documents",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			docs := make([]int, len(args)-1)
			for i, arg := range args[1:] {
				n, err := strconv.Atoi(arg)
				if err != nil {
					return util.WrapError(util.ErrArgument, err, "document number %q", arg)
				}
				docs[i] = n
			}
			return g.withStore(func(s store.Store) error {
				r, err := index.OpenSegmentReader(s, args[0])
				if err != nil {
					return err
				}
				defer r.Close()
				fr := r.StoredFields()
				defer fr.Close()
				for _, n := range docs {
					doc, err := fr.Document(n)
					if err != nil {
						return err
					}
					fmt.Fprintln(cmd.OutOrStdout(), doc)
				}
				return nil
			})
		},
	}
}
