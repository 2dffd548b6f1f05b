package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/Prasann123/Tradition-RAG/internal/ingest"
	srv "github.com/Prasann123/Tradition-RAG/internal/server"
)

func ingestCMD() *cobra.Command {
	var req ingest.Request
	var cmd = &cobra.Command{
		Use:   "ingest",
		Short: "Ingest documents into a retrieval backend",
	}
	cmd.PersistentFlags().StringVar(&req.VectorDB, "vectordb", "", "retrieval backend (milvus, chroma, bleve)")
	cmd.PersistentFlags().StringVar(&req.CollectionName, "collection", "", "collection name")
	cmd.PersistentFlags().StringVar(&req.ParserType, "parser", "", "parser type (recursive, simple)")
	cmd.PersistentFlags().IntVar(&req.ChunkSize, "chunk-size", 0, "chunk size in characters")
	cmd.PersistentFlags().IntVar(&req.ChunkOverlap, "chunk-overlap", 0, "chunk overlap in characters")

	var file = &cobra.Command{
		Use:   "file [path]",
		Short: "Ingest a PDF or text file and wait for the job",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			app, err := srv.Build(c.Context(), cfg)
			if err != nil {
				return err
			}
			defer app.Close()

			// jobs delete their input, so work on a copy
			tmp, err := copyToTemp(args[0])
			if err != nil {
				return err
			}
			r := req
			r.Source = filepath.Base(args[0])
			id, err := app.Ingest.SubmitFile(c.Context(), tmp, r)
			if err != nil {
				return err
			}
			for {
				st, err := app.Ingest.Status(c.Context(), id)
				if err != nil {
					return err
				}
				if st.Finished() {
					fmt.Println(st.Message)
					if st.Status == ingest.StatusError {
						return fmt.Errorf("job %s failed", id)
					}
					return nil
				}
				select {
				case <-c.Context().Done():
					return c.Context().Err()
				case <-time.After(250 * time.Millisecond):
				}
			}
		},
	}

	var text = &cobra.Command{
		Use:   "text [file|-]",
		Short: "Ingest raw text from a file or stdin",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			var body []byte
			var err error
			if args[0] == "-" {
				body, err = io.ReadAll(os.Stdin)
			} else {
				body, err = os.ReadFile(args[0])
			}
			if err != nil {
				return err
			}
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			app, err := srv.Build(c.Context(), cfg)
			if err != nil {
				return err
			}
			defer app.Close()
			answer, err := app.Ingest.IngestText(c.Context(), string(body), req)
			if err != nil {
				return err
			}
			fmt.Println(answer)
			return nil
		},
	}

	var url = &cobra.Command{
		Use:   "url [url]",
		Short: "Scrape a web page and ingest its text",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			app, err := srv.Build(c.Context(), cfg)
			if err != nil {
				return err
			}
			defer app.Close()
			answer, err := app.Ingest.IngestURL(c.Context(), args[0], req)
			if err != nil {
				return err
			}
			fmt.Println(answer)
			return nil
		},
	}

	cmd.AddCommand(file, text, url)
	return cmd
}

func copyToTemp(path string) (string, error) {
	src, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer src.Close()
	dst, err := os.CreateTemp("", "ragagent-*"+filepath.Ext(path))
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(dst.Name())
		return "", err
	}
	return dst.Name(), dst.Close()
}
