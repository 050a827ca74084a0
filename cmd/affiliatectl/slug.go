package main

import (
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/MagnunAVF/affiliate-tracker/internal/tracking"
)

func newSlugCmd(e *env) *cobra.Command {
	slug := &cobra.Command{
		Use:   "slug",
		Short: "Manage referral slugs",
	}
	slug.AddCommand(newSlugCreateCmd(e), newSlugListCmd(e), newSlugDeactivateCmd(e))
	return slug
}

func newSlugCreateCmd(e *env) *cobra.Command {
	var (
		publicSlug string
		offerID    int64
		campaign   string
		inactive   bool
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a referral slug for an existing offer",
		Long: `Create a referral slug pointing at a product offer. Without --slug a
short base58 slug is generated.

Example:
  affiliatectl slug create --offer 42 --slug spring-sale --campaign newsletter`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			admin, err := e.slugAdmin()
			if err != nil {
				return err
			}

			in := tracking.CreateSlugInput{PublicSlug: publicSlug, OfferID: offerID}
			if campaign != "" {
				in.CampaignTag = &campaign
			}
			if inactive {
				active := false
				in.IsActive = &active
			}

			rs, err := admin.Create(cmd.Context(), in)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Referral slug created: id=%d slug=%s active=%t\n", rs.ID, rs.PublicSlug, rs.IsActive)
			return nil
		},
	}

	cmd.Flags().StringVar(&publicSlug, "slug", "", "public slug (generated when empty)")
	cmd.Flags().Int64Var(&offerID, "offer", 0, "product offer id the slug redirects to")
	cmd.Flags().StringVar(&campaign, "campaign", "", "optional campaign tag")
	cmd.Flags().BoolVar(&inactive, "inactive", false, "create the slug deactivated")
	cmd.MarkFlagRequired("offer")
	return cmd
}

func newSlugListCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the most recent referral slugs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			admin, err := e.slugAdmin()
			if err != nil {
				return err
			}
			slugs, err := admin.List(cmd.Context())
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tSLUG\tOFFER\tVENDOR\tACTIVE")
			for _, s := range slugs {
				fmt.Fprintf(w, "%d\t%s\t%d\t%s\t%t\n", s.ID, s.PublicSlug, s.OfferID, s.VendorName, s.IsActive)
			}
			return w.Flush()
		},
	}
}

func newSlugDeactivateCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "deactivate <id>",
		Short: "Deactivate a referral slug; it stops redirecting but keeps its clicks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || id <= 0 {
				return fmt.Errorf("invalid slug id %q", args[0])
			}
			admin, err := e.slugAdmin()
			if err != nil {
				return err
			}
			if err := admin.Deactivate(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Referral slug %d deactivated.\n", id)
			return nil
		},
	}
}
