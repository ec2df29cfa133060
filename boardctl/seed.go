package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"prism-board/board"
	"prism-board/domain"
)

// boardTemplate describes a board to create, in file order.
type boardTemplate struct {
	Title   string          `yaml:"title"`
	Owner   string          `yaml:"owner"`
	Members []string        `yaml:"members"`
	Labels  []labelTemplate `yaml:"labels"`
	Lists   []listTemplate  `yaml:"lists"`
}

type labelTemplate struct {
	Name  string `yaml:"name"`
	Color string `yaml:"color"`
}

type listTemplate struct {
	Title   string         `yaml:"title"`
	Members []string       `yaml:"members"`
	Cards   []cardTemplate `yaml:"cards"`
}

type cardTemplate struct {
	Title       string   `yaml:"title"`
	Description string   `yaml:"description"`
	Due         string   `yaml:"due"`
	Members     []string `yaml:"members"`
	Labels      []string `yaml:"labels"`
	Checklist   []string `yaml:"checklist"`
}

// seedStats counts what a seed created.
type seedStats struct {
	Lists int
	Cards int
}

func newSeedCommand(opts *rootOptions) *cobra.Command {
	var owner string

	cmd := &cobra.Command{
		Use:   "seed <template.yaml>",
		Short: "Create a board from a YAML template",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			tpl, err := decodeTemplate(f)
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			if owner != "" {
				tpl.Owner = owner
			}

			b, err := opts.open()
			if err != nil {
				return err
			}
			defer b.Close()

			created, stats, err := seedBoard(cmd.Context(), b.svc, tpl)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "board %s created with %d lists and %d cards\n", created.ID, stats.Lists, stats.Cards)
			return nil
		},
	}

	cmd.Flags().StringVar(&owner, "owner", "", "owner user id, overrides the template")
	return cmd
}

func decodeTemplate(r io.Reader) (boardTemplate, error) {
	var tpl boardTemplate
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&tpl); err != nil {
		return boardTemplate{}, fmt.Errorf("decode template: %w", err)
	}
	return tpl, nil
}

// seedBoard creates the templated board through the service, acting as the owner.
// Creation stops at the first error; what was created so far is kept.
func seedBoard(ctx context.Context, svc *board.Service, tpl boardTemplate) (domain.Board, seedStats, error) {
	var stats seedStats
	if tpl.Owner == "" {
		return domain.Board{}, stats, errors.New("template has no owner")
	}
	owner := tpl.Owner

	b, err := svc.CreateBoard(ctx, owner, domain.CreateBoardRequest{Title: tpl.Title})
	if err != nil {
		return domain.Board{}, stats, fmt.Errorf("board: %w", err)
	}
	for _, m := range tpl.Members {
		if err := svc.AddBoardMember(ctx, owner, b.ID, domain.MemberRequest{UserID: m}); err != nil {
			return b, stats, fmt.Errorf("member %s: %w", m, err)
		}
	}

	labels := make(map[string]string, len(tpl.Labels))
	for _, lt := range tpl.Labels {
		l, err := svc.CreateLabel(ctx, owner, b.ID, domain.LabelRequest{Name: lt.Name, Color: lt.Color})
		if err != nil {
			return b, stats, fmt.Errorf("label %s: %w", lt.Name, err)
		}
		labels[lt.Name] = l.ID
	}

	for _, lt := range tpl.Lists {
		l, err := svc.CreateList(ctx, owner, b.ID, domain.TitleRequest{Title: lt.Title})
		if err != nil {
			return b, stats, fmt.Errorf("list %s: %w", lt.Title, err)
		}
		stats.Lists++
		for _, m := range lt.Members {
			if err := svc.AddListMember(ctx, owner, l.ID, m); err != nil {
				return b, stats, fmt.Errorf("list %s member %s: %w", lt.Title, m, err)
			}
		}
		for _, ct := range lt.Cards {
			if err := seedCard(ctx, svc, owner, l.ID, labels, ct); err != nil {
				return b, stats, fmt.Errorf("card %s: %w", ct.Title, err)
			}
			stats.Cards++
		}
	}
	return b, stats, nil
}

func seedCard(ctx context.Context, svc *board.Service, owner, listID string, labels map[string]string, ct cardTemplate) error {
	c, err := svc.CreateCard(ctx, owner, listID, domain.TitleRequest{Title: ct.Title})
	if err != nil {
		return err
	}

	var patch domain.CardPatch
	if ct.Description != "" {
		patch.Description = &ct.Description
	}
	if ct.Due != "" {
		due, err := time.Parse(time.RFC3339, ct.Due)
		if err != nil {
			return fmt.Errorf("due: %w", err)
		}
		patch.DueDate = &due
	}
	if !patch.Empty() {
		if _, err := svc.UpdateCard(ctx, owner, c.ID, patch); err != nil {
			return err
		}
	}

	for _, m := range ct.Members {
		if err := svc.AssignMember(ctx, owner, c.ID, m); err != nil {
			return fmt.Errorf("member %s: %w", m, err)
		}
	}
	for _, name := range ct.Labels {
		id, ok := labels[name]
		if !ok {
			return fmt.Errorf("unknown label %q", name)
		}
		if err := svc.AttachLabel(ctx, owner, c.ID, id); err != nil {
			return fmt.Errorf("label %s: %w", name, err)
		}
	}
	for _, item := range ct.Checklist {
		if _, err := svc.AddChecklistItem(ctx, owner, c.ID, domain.ChecklistItemRequest{Title: item}); err != nil {
			return fmt.Errorf("checklist: %w", err)
		}
	}
	return nil
}
