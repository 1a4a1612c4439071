package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	ngstate "github.com/goliatone/go-ngstate"
	"github.com/goliatone/go-ngstate/pkg/session"
	"github.com/spf13/cobra"
)

var (
	sessionDataset string
	sessionUser    string
	sessionETag    string
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Save and resume viewer sessions",
}

var sessionSaveCmd = &cobra.Command{
	Use:   "save [document.json]",
	Short: "Checkpoint a viewer document for a dataset and user",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runSessionSave,
}

var sessionResumeCmd = &cobra.Command{
	Use:   "resume",
	Short: "Print the INIT_VIEWER action that restores a saved session",
	Args:  cobra.NoArgs,
	RunE:  runSessionResume,
}

func init() {
	sessionCmd.PersistentFlags().StringVar(&sessionDataset, "dataset", "", "dataset name")
	sessionCmd.PersistentFlags().StringVar(&sessionUser, "user", "", "user id (empty addresses the dataset layout)")
	sessionSaveCmd.Flags().StringVar(&sessionETag, "etag", "", "reject the save unless the stored ETag matches")
	_ = sessionCmd.MarkPersistentFlagRequired("dataset")

	sessionCmd.AddCommand(sessionSaveCmd, sessionResumeCmd)
	rootCmd.AddCommand(sessionCmd)
}

func sessionResolver(cmd *cobra.Command) (session.Resolver, ngstate.Document, error) {
	cfg, err := loadConfig()
	if err != nil {
		return session.Resolver{}, ngstate.Document{}, err
	}
	resolver := session.Resolver{
		Store:   session.NewFileStore[ngstate.Document](cfg.SessionDir),
		Emitter: activityLogger(newLogger(cmd.ErrOrStderr())),
	}
	return resolver, cfg.DefaultDocument(), nil
}

func runSessionSave(cmd *cobra.Command, args []string) error {
	resolver, _, err := sessionResolver(cmd)
	if err != nil {
		return err
	}

	in := cmd.InOrStdin()
	if len(args) == 1 {
		file, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("open document: %w", err)
		}
		defer file.Close()
		in = file
	}
	raw, err := io.ReadAll(in)
	if err != nil {
		return fmt.Errorf("read document: %w", err)
	}
	var doc ngstate.Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("decode document: %w", err)
	}

	ref := session.Ref{Dataset: sessionDataset, User: sessionUser}
	meta, err := resolver.Checkpoint(cmd.Context(), ref, doc, session.Meta{ETag: sessionETag})
	if err != nil {
		return err
	}
	return json.NewEncoder(cmd.OutOrStdout()).Encode(meta)
}

func runSessionResume(cmd *cobra.Command, _ []string) error {
	resolver, defaults, err := sessionResolver(cmd)
	if err != nil {
		return err
	}
	action, _, err := resolver.Resume(cmd.Context(), sessionDataset, sessionUser, defaults)
	if err != nil {
		return err
	}
	return writeInitViewer(cmd.OutOrStdout(), action)
}
