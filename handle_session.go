package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

func newCategoriesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "List categories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := setupSession(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			categories, err := s.client.ListCategories(cmd.Context())
			if err != nil {
				return userError(err)
			}
			for _, c := range categories {
				fmt.Fprintf(cmd.OutOrStdout(), "%-5d %s\n", c.ID, c.Name)
			}
			return nil
		},
	}
}

func newLoginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Check credentials by opening a session",
		Long: "Log in with --email and --password. " +
			"Sessions are not kept between invocations; pass the flags to any command instead.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if email, _ := cmd.Flags().GetString(flagEmail); email == "" {
				return fmt.Errorf("--%s is required", flagEmail)
			}
			s, err := setupSession(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Logged in to %s\n", s.cfg.Endpoint)
			return nil
		},
	}
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Close the session and drop cached results",
		Long:  "Close the session opened by --email and --password, if any, and drop everything cached for it.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := setupSession(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			ok, err := s.client.Logout(cmd.Context())
			if err != nil {
				return userError(err)
			}
			if !ok {
				return errors.New("logout was rejected")
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return nil
		},
	}
}
