package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jask/fintool/internal/service"
	"github.com/jask/fintool/internal/tagging"
)

var (
	ruleConcept string
	ruleMatch   string
	ruleTags    string
	ruleID      string
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Manage tag rules",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return cmd.Help()
	},
}

var rulesAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a tag rule",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		r, err := a.rules.Add(cmd.Context(), service.RuleInput{
			Concept: ruleConcept,
			Match:   ruleMatch,
			Tags:    tagging.Split(ruleTags),
		})
		if err != nil {
			return err
		}
		fmt.Printf("Added rule %s\n", r.ID)
		return nil
	},
}

var rulesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tag rules",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		rules, err := a.rules.List(cmd.Context())
		if err != nil {
			return err
		}
		for _, r := range rules {
			fmt.Printf("%s  %-8s %-30s %s\n",
				r.ID, r.Match, r.Concept, strings.Join(r.Tags, "|"))
		}
		fmt.Printf("%d rules\n", len(rules))
		return nil
	},
}

var rulesEditCmd = &cobra.Command{
	Use:   "edit",
	Short: "Replace a tag rule",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		r, err := a.rules.Update(cmd.Context(), ruleID, service.RuleInput{
			Concept: ruleConcept,
			Match:   ruleMatch,
			Tags:    tagging.Split(ruleTags),
		})
		if err != nil {
			return err
		}
		fmt.Printf("Updated rule %s\n", r.ID)
		return nil
	},
}

var rulesRemoveCmd = &cobra.Command{
	Use:   "remove",
	Short: "Delete a tag rule",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.rules.Remove(cmd.Context(), ruleID); err != nil {
			return err
		}
		fmt.Printf("Removed rule %s\n", ruleID)
		return nil
	},
}

func init() {
	rulesAddCmd.Flags().StringVar(&ruleConcept, "concept", "", "Concept the rule matches")
	rulesAddCmd.Flags().StringVar(&ruleMatch, "match", "exact", "Match type: exact or contains")
	rulesAddCmd.Flags().StringVar(&ruleTags, "tags", "", "Pipe-separated tags (a|b|c)")
	_ = rulesAddCmd.MarkFlagRequired("concept")
	_ = rulesAddCmd.MarkFlagRequired("tags")

	rulesEditCmd.Flags().StringVar(&ruleID, "id", "", "Rule id")
	rulesEditCmd.Flags().StringVar(&ruleConcept, "concept", "", "Concept the rule matches")
	rulesEditCmd.Flags().StringVar(&ruleMatch, "match", "exact", "Match type: exact or contains")
	rulesEditCmd.Flags().StringVar(&ruleTags, "tags", "", "Pipe-separated tags (a|b|c)")
	_ = rulesEditCmd.MarkFlagRequired("id")
	_ = rulesEditCmd.MarkFlagRequired("concept")
	_ = rulesEditCmd.MarkFlagRequired("tags")

	rulesRemoveCmd.Flags().StringVar(&ruleID, "id", "", "Rule id")
	_ = rulesRemoveCmd.MarkFlagRequired("id")

	rulesCmd.AddCommand(rulesAddCmd, rulesListCmd, rulesEditCmd, rulesRemoveCmd)
	rootCmd.AddCommand(rulesCmd)
}
