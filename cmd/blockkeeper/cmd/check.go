package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/solatis/blockkeeper/internal/types"
)

var checkCmd = &cobra.Command{
	Use:   "check <document.json|->",
	Short: "Validate and sanitize an editor document against a schema",
	Long: `check runs an editor document through the same validation and sanitization
as the block API and prints the sanitized document. Nothing is stored.`,
	Args: cobra.ExactArgs(1),
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
	checkCmd.Flags().String("schema", "", "schema file (overrides block_api.schema_path)")
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	engine, err := loadEngine(cfg)
	if err != nil {
		return err
	}

	raw, err := readInput(cmd.InOrStdin(), args[0], cfg.MaxPayloadBytes)
	if err != nil {
		return err
	}

	n, err := types.DecodeJSON(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", args[0], err)
	}
	doc, err := types.ParseDocument(n)
	if err != nil {
		return fmt.Errorf("%s: %w", args[0], err)
	}
	if len(doc.Blocks) > cfg.MaxDocumentBlocks {
		return fmt.Errorf("%s: document has %d blocks, maximum is %d", args[0], len(doc.Blocks), cfg.MaxDocumentBlocks)
	}

	doc.Blocks, err = engine.ProcessDocument(doc)
	if err != nil {
		return fmt.Errorf("%s: %w", args[0], err)
	}

	out, err := doc.Node().MarshalJSON()
	if err != nil {
		return err
	}
	logger.Debug("document checked", "blocks", len(doc.Blocks))
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return err
}

// readInput reads a file, or stdin for "-", refusing inputs above limit.
func readInput(stdin io.Reader, path string, limit int) ([]byte, error) {
	r := stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}

	raw, err := io.ReadAll(io.LimitReader(r, int64(limit)+1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if len(raw) > limit {
		return nil, fmt.Errorf("%s exceeds %d bytes", path, limit)
	}
	return raw, nil
}
