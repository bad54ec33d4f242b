package cmds

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"slices"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/go-go-golems/kbassist/pkg/api"
	"github.com/go-go-golems/kbassist/pkg/uploader"
	"github.com/mitchellh/go-homedir"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func NewUploadCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "upload <file>...",
		Short: "Upload documents to the knowledge base",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			up := uploader.New(newClient())
			defer up.Close()

			failed := 0
			for _, arg := range args {
				path, err := homedir.Expand(arg)
				if err != nil {
					return errors.Wrapf(err, "expand %s", arg)
				}
				f, err := api.LocalFile(path)
				if err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", arg, err)
					failed++
					continue
				}
				if !uploadOne(cmd.Context(), cmd.OutOrStdout(), up, f, false) {
					failed++
				}
			}
			if failed > 0 {
				return errors.Errorf("%d of %d uploads failed", failed, len(args))
			}
			return nil
		},
	}
}

// uploadOne runs one file through up and prints the outcome.
func uploadOne(ctx context.Context, w io.Writer, up *uploader.Uploader, f api.File, dropped bool) bool {
	if !slices.Contains(api.AcceptedExtensions, strings.ToLower(filepath.Ext(f.Name))) {
		log.Warn().Str("file", f.Name).Msg("file type is not in the supported list, the backend may reject it")
	}

	if dropped {
		up.Drop(f)
	} else {
		up.Select(f)
	}
	fmt.Fprintf(w, "%s (%s): %s\n", f.Name, humanize.Bytes(uint64(f.Size)), uploader.StatusUploading)
	up.Upload(ctx)

	st := up.State()
	fmt.Fprintf(w, "%s: %s\n", f.Name, st.Status)
	return st.Phase == uploader.PhaseSuccess
}
