package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/OFFIS-RIT/argmap/internal/util"
	"github.com/OFFIS-RIT/argmap/pkg/argmap"
	"github.com/OFFIS-RIT/argmap/pkg/loader"
	"github.com/OFFIS-RIT/argmap/pkg/logger"
	"github.com/OFFIS-RIT/argmap/pkg/store"

	"github.com/spf13/cobra"
)

var (
	extractFile        string
	extractURL         string
	extractStream      bool
	extractTemperature float64
	extractModel       string
	extractAPIKey      string
	extractNoSave      bool
)

// errExtractionFailed is returned after the failure response was printed.
var errExtractionFailed = errors.New("extraction failed")

var extractCmd = &cobra.Command{
	Use:   "extract [text]",
	Short: "Extract the argument map of a text",
	Long: `Sends the text to the language model and prints the resulting argument map
as JSON. The text is read from the argument, from --file, from --url or,
with "-", from standard input.

With --url the main text of a web page is extracted first.

With --stream the raw model output is shown on stderr while it arrives.
Successful results are saved unless --no-save is given.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runExtract,
}

func init() {
	extractCmd.Flags().StringVarP(&extractFile, "file", "f", "", "read the text from a file")
	extractCmd.Flags().StringVarP(&extractURL, "url", "u", "", "read the main text of a web page")
	extractCmd.MarkFlagsMutuallyExclusive("file", "url")
	extractCmd.Flags().BoolVar(&extractStream, "stream", false, "stream the model output while it arrives")
	extractCmd.Flags().Float64VarP(&extractTemperature, "temperature", "t", 0, "sampling temperature")
	extractCmd.Flags().StringVarP(&extractModel, "model", "m", "", "model to use instead of the configured one")
	extractCmd.Flags().StringVar(&extractAPIKey, "api-key", "", "API key for this call")
	extractCmd.Flags().BoolVar(&extractNoSave, "no-save", false, "do not save the result")
	rootCmd.AddCommand(extractCmd)
}

func readText(cmd *cobra.Command, args []string) (string, error) {
	var (
		data []byte
		err  error
	)
	switch {
	case extractFile != "":
		data, err = newTextLoader().GetText(cmd.Context(), extractFile)
	case extractURL != "":
		if !loader.IsURL(extractURL) {
			return "", fmt.Errorf("not an http(s) url: %s", extractURL)
		}
		data, err = newTextLoader().GetText(cmd.Context(), extractURL)
	case len(args) == 1 && args[0] == "-":
		data, err = io.ReadAll(cmd.InOrStdin())
	case len(args) == 1:
		data = []byte(args[0])
	default:
		return "", errors.New("no text given: pass it as argument, with --file, --url or as - on stdin")
	}
	if err != nil {
		return "", fmt.Errorf("failed to read text: %w", err)
	}

	text := string(data)
	if strings.TrimSpace(text) == "" {
		return "", errors.New("text is empty")
	}
	return text, nil
}

func runExtract(cmd *cobra.Command, args []string) error {
	text, err := readText(cmd, args)
	if err != nil {
		return err
	}

	ex, err := openExtractor()
	if err != nil {
		return err
	}

	opts := []argmap.ExtractOption{
		argmap.WithTemperature(extractTemperature),
		argmap.WithModel(extractModel),
	}
	if extractAPIKey != "" {
		opts = append(opts, argmap.WithAPIKey(extractAPIKey))
	}

	var m *argmap.ArgumentMap
	if extractStream {
		m, err = streamExtraction(cmd, ex, text, opts)
	} else {
		m, err = ex.Extract(cmd.Context(), text, opts...)
	}
	if err != nil {
		_ = printJSON(cmd, argmap.NewFailure(util.ErrorMessage(err)))
		return errExtractionFailed
	}

	resp := argmap.NewResult(m)
	if !extractNoSave {
		resp = saveResult(cmd, text, m)
	}
	return printJSON(cmd, resp)
}

func streamExtraction(
	cmd *cobra.Command,
	ex *argmap.Extractor,
	text string,
	opts []argmap.ExtractOption,
) (*argmap.ArgumentMap, error) {
	events, err := ex.ExtractStream(cmd.Context(), text, opts...)
	if err != nil {
		return nil, err
	}

	stderr := cmd.ErrOrStderr()
	var acc strings.Builder
	for ev := range events {
		switch ev.Type {
		case "chunk":
			acc.WriteString(ev.Content)
			if p, ok := argmap.PreviewPartial(acc.String()); ok {
				fmt.Fprintf(stderr, "\rreceived %d bytes, %d nodes, %d edges", acc.Len(), p.Nodes, p.Edges)
			}
		case "result":
			fmt.Fprintln(stderr)
			return ev.Map, nil
		case "error":
			fmt.Fprintln(stderr)
			return nil, ev.Err
		}
	}

	if err := cmd.Context().Err(); err != nil {
		return nil, err
	}
	return nil, errors.New("stream ended without result")
}

func saveResult(cmd *cobra.Command, text string, m *argmap.ArgumentMap) argmap.Response {
	s, closeStore, err := openStore(cmd.Context())
	if err != nil {
		logger.Warn("Result not saved", "err", err)
		return argmap.NewResult(m)
	}
	defer closeStore()

	var model *string
	if extractModel != "" {
		model = &extractModel
	}
	resp, err := store.SaveExtraction(cmd.Context(), s, store.Query{
		Text:        text,
		Temperature: extractTemperature,
		Model:       model,
	}, m)
	if err != nil {
		logger.Warn("Result not saved", "err", err)
	}
	return resp
}

func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}
