package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"

	"raffle/application"
	"raffle/config"
	"raffle/database"
	"raffle/domain/entities"

	"github.com/ethereum/go-ethereum/common"
	cli "gopkg.in/urfave/cli.v1"
)

var raffleFlag = cli.StringFlag{
	Name:  "raffle",
	Usage: "Raffle name (defaults to the network name)",
}

// NewApp builds the raffle command line. Every command runs under ctx.
func NewApp(ctx context.Context) *cli.App {
	app := cli.NewApp()
	app.Name = "raffle"
	app.Usage = "Time-gated raffle settled by a local VRF coordinator"
	app.Version = "0.1.0"
	app.Commands = []cli.Command{
		{
			Name:  "run",
			Usage: "Run the upkeep worker, the fulfiller and the announcer",
			Action: func(c *cli.Context) error {
				return Run(ctx, config.Get())
			},
		},
		{
			Name:  "migrate",
			Usage: "Manage the database schema",
			Subcommands: []cli.Command{
				{
					Name:  "up",
					Usage: "Apply all pending migrations",
					Action: func(c *cli.Context) error {
						return database.MigrateUp(config.Get().GetDatabaseURL())
					},
				},
				{
					Name:      "down",
					Usage:     "Roll back migrations",
					ArgsUsage: "[steps]",
					Action: func(c *cli.Context) error {
						steps := 1
						if c.NArg() > 0 {
							n, err := strconv.Atoi(c.Args().First())
							if err != nil || n < 1 {
								return fmt.Errorf("invalid step count %q", c.Args().First())
							}
							steps = n
						}
						return database.MigrateDown(config.Get().GetDatabaseURL(), steps)
					},
				},
				{
					Name:  "status",
					Usage: "Show the current schema version",
					Action: func(c *cli.Context) error {
						status, err := database.GetMigrationStatus(config.Get().GetDatabaseURL())
						if err != nil {
							return err
						}
						if !status.Applied {
							fmt.Fprintln(c.App.Writer, "No migrations applied")
							return nil
						}
						fmt.Fprintf(c.App.Writer, "Version: %d (dirty: %t)\n", status.Version, status.Dirty)
						return nil
					},
				},
			},
		},
		{
			Name:  "deploy",
			Usage: "Create the raffle for the configured network",
			Flags: []cli.Flag{
				raffleFlag,
				cli.StringFlag{
					Name:  "owner",
					Usage: "Owner address of a newly created subscription",
					Value: common.Address{}.Hex(),
				},
			},
			Action: withEnvironment(ctx, deployAction),
		},
		{
			Name:      "fund",
			Usage:     "Credit a participant account",
			ArgsUsage: "<address> <amount>",
			Action: withEnvironment(ctx, func(ctx context.Context, c *cli.Context, env *environment) error {
				address, amount, err := addressAndAmount(c)
				if err != nil {
					return err
				}
				account, err := env.app.Deposit(ctx, address, amount)
				if err != nil {
					return err
				}
				fmt.Fprintf(c.App.Writer, "%s balance: %d\n", account.Address.Hex(), account.Balance)
				return nil
			}),
		},
		{
			Name:      "fund-subscription",
			Usage:     "Top up a coordinator subscription",
			ArgsUsage: "<subscriptionId> <amount>",
			Action: withEnvironment(ctx, func(ctx context.Context, c *cli.Context, env *environment) error {
				if c.NArg() != 2 {
					return errors.New("usage: raffle fund-subscription <subscriptionId> <amount>")
				}
				subID, err := parsePositive(c.Args().Get(0))
				if err != nil {
					return err
				}
				amount, err := parsePositive(c.Args().Get(1))
				if err != nil {
					return err
				}
				sub, err := env.app.FundSubscription(ctx, subID, amount)
				if err != nil {
					return err
				}
				fmt.Fprintf(c.App.Writer, "Subscription %d balance: %d\n", sub.ID, sub.Balance)
				return nil
			}),
		},
		freezeCommand(ctx, "freeze", "Reject payouts to a participant account", true),
		freezeCommand(ctx, "unfreeze", "Accept payouts to a participant account again", false),
		{
			Name:      "enter",
			Usage:     "Enter the raffle from a participant account",
			ArgsUsage: "<address> [amount]",
			Flags:     []cli.Flag{raffleFlag},
			Action:    withEnvironment(ctx, enterAction),
		},
		{
			Name:  "upkeep",
			Usage: "Run one automation pass over every raffle",
			Action: withEnvironment(ctx, func(ctx context.Context, c *cli.Context, env *environment) error {
				worker, err := application.NewUpkeepWorker(env.app, env.cfg.UpkeepSchedule)
				if err != nil {
					return err
				}
				summary, err := worker.RunOnce(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(c.App.Writer, "checked=%d performed=%d skipped=%d failed=%d\n",
					summary.Checked, summary.Performed, summary.Skipped, summary.Failed)
				return nil
			}),
		},
		{
			Name:      "fulfill",
			Usage:     "Answer a pending randomness request, or all of them",
			ArgsUsage: "[requestId]",
			Action: withEnvironment(ctx, func(ctx context.Context, c *cli.Context, env *environment) error {
				if c.NArg() == 0 {
					fulfiller := application.NewFulfiller(env.app, 1, 0)
					return fulfiller.DrainPending(ctx)
				}
				requestID, err := parsePositive(c.Args().First())
				if err != nil {
					return err
				}
				result, err := env.app.FulfillRequest(ctx, requestID)
				if err != nil {
					return err
				}
				fmt.Fprintf(c.App.Writer, "Request %d: winner %s paid %d (fee %d)\n",
					requestID, result.Settlement.Winner.Hex(), result.Settlement.Payout, result.Payment)
				return nil
			}),
		},
		{
			Name:  "status",
			Usage: "Show the state of a raffle",
			Flags: []cli.Flag{
				raffleFlag,
				cli.IntFlag{
					Name:  "winners",
					Usage: "Number of recent winners to show",
					Value: 5,
				},
			},
			Action: withEnvironment(ctx, statusAction),
		},
	}
	return app
}

type environmentAction func(ctx context.Context, c *cli.Context, env *environment) error

// withEnvironment wraps an action that needs the database and the application
func withEnvironment(ctx context.Context, action environmentAction) func(c *cli.Context) error {
	return func(c *cli.Context) error {
		env, err := newEnvironment(ctx, config.Get(), nil)
		if err != nil {
			return err
		}
		defer env.Close()

		return action(ctx, c, env)
	}
}

func freezeCommand(ctx context.Context, name, usage string, frozen bool) cli.Command {
	return cli.Command{
		Name:      name,
		Usage:     usage,
		ArgsUsage: "<address>",
		Action: withEnvironment(ctx, func(ctx context.Context, c *cli.Context, env *environment) error {
			address, err := parseAddress(c.Args().First())
			if err != nil {
				return err
			}
			if err := env.app.SetFrozen(ctx, address, frozen); err != nil {
				return err
			}
			fmt.Fprintf(c.App.Writer, "%s frozen: %t\n", address.Hex(), frozen)
			return nil
		}),
	}
}

func deployAction(ctx context.Context, c *cli.Context, env *environment) error {
	owner, err := parseAddress(c.String("owner"))
	if err != nil {
		return err
	}

	result, err := env.app.Deploy(ctx, application.DeployParams{
		Name:    raffleName(c, env),
		Owner:   owner,
		Network: *env.network,
	})
	if err != nil {
		return err
	}

	verb := "Deployed"
	if !result.Created {
		verb = "Already deployed"
	}
	fmt.Fprintf(c.App.Writer, "%s raffle %q (id %d) on subscription %d\n",
		verb, result.Raffle.Name, result.Raffle.ID, result.Subscription.ID)
	return nil
}

func enterAction(ctx context.Context, c *cli.Context, env *environment) error {
	if c.NArg() < 1 {
		return errors.New("usage: raffle enter <address> [amount]")
	}
	player, err := parseAddress(c.Args().Get(0))
	if err != nil {
		return err
	}

	raffle, err := findRaffle(ctx, env, raffleName(c, env))
	if err != nil {
		return err
	}

	amount := raffle.EntranceFee
	if c.NArg() > 1 {
		if amount, err = parsePositive(c.Args().Get(1)); err != nil {
			return err
		}
	}

	result, err := env.app.Enter(ctx, raffle.ID, player, amount)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "Entered raffle %q round %d: pool %d, players %d\n",
		result.Raffle.Name, result.Raffle.Round, result.Raffle.Pool, result.Raffle.NumPlayers)
	return nil
}

func statusAction(ctx context.Context, c *cli.Context, env *environment) error {
	raffle, err := findRaffle(ctx, env, raffleName(c, env))
	if err != nil {
		return err
	}

	status, err := env.app.Status(ctx, raffle.ID, c.Int("winners"))
	if err != nil {
		return err
	}
	printStatus(c.App.Writer, status)
	return nil
}

func printStatus(w io.Writer, status *application.RaffleStatus) {
	r := status.Raffle
	fmt.Fprintf(w, "Raffle %q (id %d)\n", r.Name, r.ID)
	fmt.Fprintf(w, "  state:           %s\n", r.State)
	fmt.Fprintf(w, "  round:           %d\n", r.Round)
	fmt.Fprintf(w, "  entrance fee:    %d\n", r.EntranceFee)
	fmt.Fprintf(w, "  interval:        %s\n", r.Interval)
	fmt.Fprintf(w, "  pool:            %d\n", r.Pool)
	fmt.Fprintf(w, "  players:         %d\n", r.NumPlayers)
	fmt.Fprintf(w, "  last settlement: %s\n", r.LastSettlementAt.Format("2006-01-02 15:04:05 MST"))
	if r.RecentWinner != nil {
		fmt.Fprintf(w, "  recent winner:   %s\n", r.RecentWinner.Hex())
	}
	if r.PendingRequestID != nil {
		fmt.Fprintf(w, "  pending request: %d\n", *r.PendingRequestID)
	}
	if status.Subscription != nil {
		fmt.Fprintf(w, "  subscription:    %d (balance %d)\n", status.Subscription.ID, status.Subscription.Balance)
	}
	if status.Upkeep.Needed {
		fmt.Fprintln(w, "  upkeep:          needed")
	} else {
		fmt.Fprintf(w, "  upkeep:          not needed (%s)\n", status.Upkeep.Reason())
	}

	for _, p := range status.Participants {
		fmt.Fprintf(w, "  entrant %s: %d entries, %d paid\n", p.Player.Hex(), p.EntryCount, p.TotalPaid)
	}
	for _, winner := range status.RecentWinners {
		fmt.Fprintf(w, "  round %d winner %s: %d\n", winner.Round, winner.Winner.Hex(), winner.Payout)
	}
}

func raffleName(c *cli.Context, env *environment) string {
	if name := c.String("raffle"); name != "" {
		return name
	}
	return env.cfg.Network
}

func findRaffle(ctx context.Context, env *environment, name string) (*entities.Raffle, error) {
	raffles, err := env.app.ListRaffles(ctx)
	if err != nil {
		return nil, err
	}
	for _, r := range raffles {
		if r.Name == name {
			return r, nil
		}
	}
	return nil, fmt.Errorf("raffle %q not deployed", name)
}

func addressAndAmount(c *cli.Context) (common.Address, int64, error) {
	if c.NArg() != 2 {
		return common.Address{}, 0, fmt.Errorf("usage: raffle %s <address> <amount>", c.Command.Name)
	}
	address, err := parseAddress(c.Args().Get(0))
	if err != nil {
		return common.Address{}, 0, err
	}
	amount, err := parsePositive(c.Args().Get(1))
	if err != nil {
		return common.Address{}, 0, err
	}
	return address, amount, nil
}

func parseAddress(s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("invalid address %q", s)
	}
	return common.HexToAddress(s), nil
}

func parsePositive(s string) (int64, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("expected a positive integer, got %q", s)
	}
	return n, nil
}
