// Package main provides the followup command line client for the follow-up API.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dukex/followup/pkg/client"
	"github.com/dukex/followup/pkg/models"
	"github.com/dukex/followup/pkg/web"
	cli "github.com/urfave/cli/v3"
)

var errMissingID = errors.New("an id argument is required")

func newCommand(out io.Writer, now func() time.Time) *cli.Command {
	var api *client.Client

	requireID := func(command *cli.Command) (string, error) {
		id := command.Args().First()
		if id == "" {
			return "", errMissingID
		}

		return id, nil
	}

	return &cli.Command{
		Name:                  "followup",
		Usage:                 "Manage follow-up plans from the terminal",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "api-url",
				Usage:   "Base URL of the follow-up API",
				Value:   "http://localhost:9091",
				Sources: cli.EnvVars("FOLLOWUP_API_URL"),
			},
		},
		Before: func(ctx context.Context, command *cli.Command) (context.Context, error) {
			api = client.New(command.String("api-url"))

			return ctx, nil
		},
		Commands: []*cli.Command{
			{
				Name:    "templates",
				Aliases: []string{"t"},
				Usage:   "List plan templates",
				Action: func(ctx context.Context, _ *cli.Command) error {
					templates, err := api.Templates(ctx)
					if err != nil {
						return err
					}

					renderTemplates(out, templates)

					return nil
				},
			},
			{
				Name:    "plans",
				Aliases: []string{"p"},
				Usage:   "Create, inspect and cancel plans",
				Commands: []*cli.Command{
					{
						Name:  "list",
						Usage: "List plans",
						Flags: []cli.Flag{
							&cli.IntFlag{Name: "limit", Value: 20},
							&cli.IntFlag{Name: "offset"},
							&cli.StringFlag{Name: "status", Usage: "scheduled, in_progress, completed or failed"},
							&cli.StringFlag{Name: "sort-by", Usage: "created_at, updated_at or start_date"},
							&cli.StringFlag{Name: "sort-order", Usage: "asc or desc"},
						},
						Action: func(ctx context.Context, command *cli.Command) error {
							page, err := api.ListPlans(ctx, client.ListOptions{
								Limit:     int(command.Int("limit")),
								Offset:    int(command.Int("offset")),
								Status:    models.PlanStatus(command.String("status")),
								SortBy:    command.String("sort-by"),
								SortOrder: command.String("sort-order"),
							})
							if err != nil {
								return err
							}

							renderPlanList(out, page, now())

							return nil
						},
					},
					{
						Name:      "get",
						Usage:     "Show one plan with its tasks",
						ArgsUsage: "<plan-id>",
						Action: func(ctx context.Context, command *cli.Command) error {
							id, err := requireID(command)
							if err != nil {
								return err
							}

							detail, err := api.GetPlan(ctx, id)
							if err != nil {
								return err
							}

							renderPlan(out, detail, now())

							return nil
						},
					},
					{
						Name:  "create",
						Usage: "Create a plan from a template",
						Flags: []cli.Flag{
							&cli.StringFlag{Name: "template", Aliases: []string{"t"}, Usage: "Template id"},
							&cli.StringSliceFlag{Name: "lead", Aliases: []string{"l"}, Usage: "Target lead id, repeatable"},
							&cli.StringFlag{Name: "timezone", Usage: "IANA zone the plan runs in"},
							&cli.StringFlag{Name: "start-date", Usage: "First day of the plan (YYYY-MM-DD)"},
							&cli.StringFlag{Name: "at", Usage: "Time of day override (HH:mm)"},
						},
						Action: func(ctx context.Context, command *cli.Command) error {
							req := web.CreatePlanRequest{
								TemplateID: command.String("template"),
								PersonIDs:  command.StringSlice("lead"),
								Timezone:   command.String("timezone"),
								StartDate:  command.String("start-date"),
							}

							if at := command.String("at"); at != "" {
								req.Schedule = &web.ScheduleRequest{Enabled: true, Time: at}
							}

							detail, err := api.CreatePlan(ctx, req)
							if err != nil {
								return err
							}

							fmt.Fprintln(out, successStyle.Render("Plan created"))
							renderPlan(out, detail, now())

							return nil
						},
					},
					{
						Name:      "delete",
						Usage:     "Cancel a plan that has not started",
						ArgsUsage: "<plan-id>",
						Action: func(ctx context.Context, command *cli.Command) error {
							id, err := requireID(command)
							if err != nil {
								return err
							}

							err = api.DeletePlan(ctx, id)
							if err != nil {
								return err
							}

							fmt.Fprintln(out, successStyle.Render("Plan "+id+" deleted"))

							return nil
						},
					},
				},
			},
			{
				Name:    "leads",
				Aliases: []string{"l"},
				Usage:   "Look up plans and colleagues of a lead",
				Commands: []*cli.Command{
					{
						Name:      "plans",
						Usage:     "Plans targeting the lead, most recently touched first",
						ArgsUsage: "<lead-id>",
						Action: func(ctx context.Context, command *cli.Command) error {
							id, err := requireID(command)
							if err != nil {
								return err
							}

							plans, err := api.PlansForLead(ctx, id)
							if err != nil {
								return err
							}

							renderPlans(out, plans, now())

							return nil
						},
					},
					{
						Name:      "colleagues",
						Usage:     "Other leads of the same company",
						ArgsUsage: "<lead-id>",
						Action: func(ctx context.Context, command *cli.Command) error {
							id, err := requireID(command)
							if err != nil {
								return err
							}

							leads, err := api.Colleagues(ctx, id)
							if err != nil {
								return err
							}

							renderLeads(out, leads)

							return nil
						},
					},
					{
						Name:      "upsert",
						Usage:     "Create or update a lead",
						ArgsUsage: "<lead-id>",
						Flags: []cli.Flag{
							&cli.StringFlag{Name: "name"},
							&cli.StringFlag{Name: "email"},
							&cli.StringFlag{Name: "timezone"},
							&cli.StringFlag{Name: "company-id"},
							&cli.StringFlag{Name: "company-name"},
						},
						Action: func(ctx context.Context, command *cli.Command) error {
							id, err := requireID(command)
							if err != nil {
								return err
							}

							lead, err := api.UpsertLead(ctx, id, web.UpsertLeadRequest{
								Name:        command.String("name"),
								Email:       command.String("email"),
								Timezone:    command.String("timezone"),
								CompanyID:   command.String("company-id"),
								CompanyName: command.String("company-name"),
							})
							if err != nil {
								return err
							}

							fmt.Fprintln(out, successStyle.Render("Lead "+lead.ID+" saved"))

							return nil
						},
					},
				},
			},
		},
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newCommand(os.Stdout, time.Now).Run(ctx, os.Args)

	stop()

	if err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render(err.Error()))
		os.Exit(1)
	}
}
