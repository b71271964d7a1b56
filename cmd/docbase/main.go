// Package main provides the docbase CLI for managing the document
// collection: ingesting files, syncing from GitHub, and querying.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/bull/docbase/internal/config"
	"github.com/bull/docbase/internal/corpus"
	"github.com/bull/docbase/internal/document"
	ghclient "github.com/bull/docbase/internal/github"
	"github.com/bull/docbase/internal/loader"
	"github.com/bull/docbase/internal/storage"
)

var rootCmd = &cobra.Command{
	Use:   "docbase",
	Short: "Document collection management tool",
	Long: `CLI for the docbase document collection.

Ingests documents (pdf, docx, txt, md and friends), chunks and embeds them
into a vector store, classifies them into categories, and answers semantic
queries.

Environment variables:
  DOCBASE_DATA_DIR           Data directory (default: ~/.docbase)
  DOCBASE_EMBEDDING_BACKEND  ollama or openai (default: ollama)
  DOCBASE_EMBEDDING_MODEL    Embedding model name
  DOCBASE_VECTOR_STORE       sqlite or qdrant (default: sqlite)
  OLLAMA_HOST                Ollama base URL (default: http://localhost:11434)
  OPENAI_API_KEY             Required for the openai backend
  QDRANT_HOST, QDRANT_PORT   Qdrant location for the qdrant store
  GITHUB_TOKEN               GitHub token for sync (optional)`,
}

var (
	queryTop      int
	queryCategory string
	queryFilename string
	clearForce    bool
	syncOwner     string
	syncRepo      string
	syncPath      string
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <file>...",
	Short: "Ingest one or more documents",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runIngest,
}

var queryCmd = &cobra.Command{
	Use:   "query <text>",
	Short: "Retrieve the most relevant chunks for a query",
	Args:  cobra.ExactArgs(1),
	RunE:  runQuery,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all documents in the collection",
	RunE:  runList,
}

var deleteCmd = &cobra.Command{
	Use:   "delete <filename>",
	Short: "Delete a document and its chunks",
	Args:  cobra.ExactArgs(1),
	RunE:  runDelete,
}

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every document, chunk and content backup",
	RunE:  runClear,
}

var categoriesCmd = &cobra.Command{
	Use:   "categories",
	Short: "Show the category taxonomy with document counts",
	RunE:  runCategories,
}

var reclassifyCmd = &cobra.Command{
	Use:   "reclassify",
	Short: "Re-run classification over all documents",
	RunE:  runReclassify,
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Ingest documentation files from a GitHub repository",
	Long: `Downloads matching files from a GitHub repository directory and ingests
them like local uploads. Re-running sync replaces previously synced files.`,
	RunE: runSync,
}

func init() {
	queryCmd.Flags().IntVar(&queryTop, "top", 5, "number of chunks to return")
	queryCmd.Flags().StringVar(&queryCategory, "category", "", "restrict to one category")
	queryCmd.Flags().StringVar(&queryFilename, "filename", "", "restrict to one document")
	clearCmd.Flags().BoolVar(&clearForce, "force", false, "skip confirmation")
	syncCmd.Flags().StringVar(&syncOwner, "owner", "", "repository owner (required)")
	syncCmd.Flags().StringVar(&syncRepo, "repo", "", "repository name (required)")
	syncCmd.Flags().StringVar(&syncPath, "path", "", "directory within the repository")
	syncCmd.MarkFlagRequired("owner")
	syncCmd.MarkFlagRequired("repo")

	rootCmd.AddCommand(ingestCmd, queryCmd, listCmd, deleteCmd, clearCmd,
		categoriesCmd, reclassifyCmd, syncCmd)
}

func main() {
	// Load .env file if present (local development), ignore if missing
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func openManager() (*corpus.Manager, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return corpus.Open(cfg, slog.Default())
}

func runIngest(cmd *cobra.Command, args []string) error {
	manager, err := openManager()
	if err != nil {
		return err
	}
	defer manager.Close()

	ctx := context.Background()
	start := time.Now()

	results, err := manager.ProcessBatch(ctx, args)
	succeeded := 0
	for _, result := range results {
		if result.Succeeded() {
			succeeded++
			fmt.Printf("  %s: %s (%d chunks)\n",
				result.Filename, result.Document.Category, result.Document.ChunkCount)
		} else {
			fmt.Printf("  %s: failed (%s): %v\n", result.Filename, result.Reason, result.Err)
		}
	}
	fmt.Println()
	fmt.Printf("Ingested %d/%d documents in %s\n",
		succeeded, len(results), time.Since(start).Round(time.Millisecond))
	return err
}

func runQuery(cmd *cobra.Command, args []string) error {
	manager, err := openManager()
	if err != nil {
		return err
	}
	defer manager.Close()

	filter := storage.Filter{}
	if queryCategory != "" {
		filter[document.MetaCategory] = queryCategory
	}
	if queryFilename != "" {
		filter[document.MetaFilename] = queryFilename
	}

	chunks := manager.RelevantChunks(context.Background(), args[0], queryTop, filter)
	if len(chunks) == 0 {
		fmt.Println("No matching chunks found.")
		return nil
	}

	for i, chunk := range chunks {
		fmt.Printf("%d. [%.3f] %s (%s)\n", i+1, chunk.Score,
			chunk.Metadata[document.MetaFilename], chunk.Metadata[document.MetaCategory])
		fmt.Println(chunk.Text)
		fmt.Println()
	}
	return nil
}

func runList(cmd *cobra.Command, args []string) error {
	manager, err := openManager()
	if err != nil {
		return err
	}
	defer manager.Close()

	docs, err := manager.ListDocuments(context.Background())
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		fmt.Println("No documents in the collection.")
		return nil
	}

	for _, doc := range docs {
		fmt.Printf("  %-40s %-30s %8d bytes  %3d chunks  %s\n",
			doc.Filename, doc.Category, doc.FileSize, doc.ChunkCount,
			doc.AddedDate.Format("2006-01-02"))
	}
	fmt.Println()
	fmt.Printf("%d documents\n", len(docs))
	return nil
}

func runDelete(cmd *cobra.Command, args []string) error {
	manager, err := openManager()
	if err != nil {
		return err
	}
	defer manager.Close()

	if err := manager.DeleteDocument(context.Background(), args[0]); err != nil {
		return err
	}
	fmt.Printf("Deleted %s\n", args[0])
	return nil
}

func runClear(cmd *cobra.Command, args []string) error {
	if !clearForce {
		return fmt.Errorf("clear destroys the entire collection; re-run with --force")
	}

	manager, err := openManager()
	if err != nil {
		return err
	}
	defer manager.Close()

	if err := manager.ClearAll(context.Background()); err != nil {
		return err
	}
	fmt.Println("Collection cleared")
	return nil
}

func runCategories(cmd *cobra.Command, args []string) error {
	manager, err := openManager()
	if err != nil {
		return err
	}
	defer manager.Close()

	counts, err := manager.Categories(context.Background())
	if err != nil {
		return err
	}
	for _, c := range counts {
		fmt.Printf("  %-35s %d\n", c.Name, c.Count)
	}
	return nil
}

func runReclassify(cmd *cobra.Command, args []string) error {
	manager, err := openManager()
	if err != nil {
		return err
	}
	defer manager.Close()

	changed, err := manager.ReclassifyAll(context.Background())
	if err != nil {
		return err
	}
	fmt.Printf("Reclassified collection, %d categories changed\n", changed)
	return nil
}

func runSync(cmd *cobra.Command, args []string) error {
	manager, err := openManager()
	if err != nil {
		return err
	}
	defer manager.Close()

	ctx := context.Background()
	start := time.Now()

	client, err := ghclient.NewClient(ctx)
	if err != nil {
		return fmt.Errorf("creating GitHub client: %w", err)
	}
	fetcher := ghclient.NewFetcher(client, syncOwner, syncRepo, syncPath,
		loader.Default().Extensions())

	if sha, err := fetcher.GetLatestCommitSHA(ctx); err == nil {
		fmt.Printf("Syncing %s/%s at %s\n", syncOwner, syncRepo, sha[:12])
	}

	tmpDir, err := os.MkdirTemp("", "docbase-sync-*")
	if err != nil {
		return err
	}
	defer os.RemoveAll(tmpDir)

	paths, err := fetcher.DownloadAll(ctx, tmpDir)
	if err != nil {
		return fmt.Errorf("downloading documents: %w", err)
	}
	fmt.Printf("Downloaded %d files\n", len(paths))

	results, err := manager.ProcessBatch(ctx, paths)
	succeeded := 0
	for _, result := range results {
		if result.Succeeded() {
			succeeded++
		} else {
			fmt.Printf("  %s: failed (%s): %v\n", result.Filename, result.Reason, result.Err)
		}
	}
	fmt.Println()
	fmt.Printf("Sync complete: %d/%d documents in %s\n",
		succeeded, len(results), time.Since(start).Round(time.Second))
	return err
}
