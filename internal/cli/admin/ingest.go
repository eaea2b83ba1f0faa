package admin

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cloo-solutions/mpedge/internal/corpus"
	"github.com/cloo-solutions/mpedge/internal/repository"
	"github.com/cloo-solutions/mpedge/internal/service"
)

type ingestOptions struct {
	index             string
	out               string
	s3Key             string
	postgres          bool
	noEmbed           bool
	minParagraphChars int
}

// IngestCmd builds a corpus snapshot from extracted chapter text
func IngestCmd() *cobra.Command {
	var opts ingestOptions

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Build the MPEP corpus",
		Long: `Split extracted chapter text into paragraphs, embed them and write the corpus.

The index is a YAML file listing chapters:

  chapters:
    - id: "800"
      number: 800
      title: Restriction of Application
      keywords: [restriction, election]
      file: text/mpep-0800.txt

At least one of --out, --s3-key or --postgres is required.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIngest(context.Background(), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.index, "index", "i", "", "Chapter index YAML file")
	cmd.Flags().StringVarP(&opts.out, "out", "o", "", "Write a JSON snapshot to this path")
	cmd.Flags().StringVar(&opts.s3Key, "s3-key", "", "Upload the JSON snapshot to this S3 key")
	cmd.Flags().BoolVar(&opts.postgres, "postgres", false, "Replace the corpus tables in Postgres")
	cmd.Flags().BoolVar(&opts.noEmbed, "no-embed", false, "Skip embeddings (lexical scoring only)")
	cmd.Flags().IntVar(&opts.minParagraphChars, "min-paragraph-chars", service.DefaultIngestConfig().MinParagraphChars, "Merge fragments shorter than this into the next paragraph")
	_ = cmd.MarkFlagRequired("index")

	return withConfigEnv(cmd)
}

func runIngest(ctx context.Context, opts ingestOptions) error {
	if opts.out == "" && opts.s3Key == "" && !opts.postgres {
		return fmt.Errorf("nothing to write: set --out, --s3-key or --postgres")
	}

	rt, err := newRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()
	log := rt.log

	index, err := corpus.LoadIndex(opts.index)
	if err != nil {
		return err
	}
	raw, err := index.ReadChapters()
	if err != nil {
		return err
	}

	cfg := service.DefaultIngestConfig()
	cfg.MinParagraphChars = opts.minParagraphChars

	var (
		embedder       service.BatchEmbedder
		embeddingModel string
	)
	if client := rt.embeddingClient(0); client != nil && !opts.noEmbed {
		embedder = client
		embeddingModel = client.Model()
	} else if !opts.noEmbed {
		log.Warn().Msg("MPEDGE_OPENAI_API_KEY not set, building corpus without embeddings")
	}

	var sinks []service.CorpusWriter
	if opts.out != "" {
		sinks = append(sinks, corpus.FileWriter{Path: opts.out, EmbeddingModel: embeddingModel})
	}
	if opts.s3Key != "" {
		objects, err := rt.objectStore(ctx)
		if err != nil {
			return err
		}
		if err := objects.EnsureBucket(ctx); err != nil {
			return fmt.Errorf("failed to ensure S3 bucket: %w", err)
		}
		sinks = append(sinks, corpus.S3Writer{Objects: objects, Key: opts.s3Key, EmbeddingModel: embeddingModel})
	}
	if opts.postgres {
		pool, err := rt.database(ctx)
		if err != nil {
			return err
		}
		if err := rt.migrate(); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
		sinks = append(sinks, repository.NewCorpusRepository(pool))
	}

	doc, err := service.NewIngestService(embedder, cfg, log).Run(ctx, raw, sinks...)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stdout, "Ingested %d chapters, %d paragraphs\n", len(doc.Chapters()), doc.ParagraphCount())

	if opts.s3Key != "" {
		objects, _ := rt.objectStore(ctx)
		meta, err := objects.HeadObject(ctx, opts.s3Key)
		if err != nil {
			return fmt.Errorf("failed to verify snapshot upload: %w", err)
		}
		url, err := objects.GenerateDownloadURL(ctx, opts.s3Key)
		if err != nil {
			return fmt.Errorf("failed to presign snapshot: %w", err)
		}
		fmt.Fprintf(os.Stdout, "Snapshot s3://%s/%s (%d bytes)\n%s\n", objects.Bucket(), opts.s3Key, meta.ContentLength, url)
	}
	return nil
}
