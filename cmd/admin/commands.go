package main

import (
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"muse-go/internal/config"
	"muse-go/internal/logging"
	"muse-go/internal/services"
	"muse-go/internal/storage"
)

// app 持有一次命令执行需要的服务，在 PersistentPreRunE 中创建。
type app struct {
	db          *gorm.DB
	discussions services.DiscussionService
	swipes      services.SwipeService
	library     services.LibraryService
	feed        services.FeedService
}

type rootFlags struct {
	configPath string
	sqlitePath string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	var (
		flags rootFlags
		a     app
	)

	root := &cobra.Command{
		Use:   "muse-admin",
		Short: "Operator tools for the muse backend",
		Long: `Inspect discussions, libraries and feeds, and repair swipe cross-references.

Available subcommands:
  discussions        - List a user's discussions, most recent first
  participant        - Show the other participant of a discussion
  library            - Print a user's liked songs grouped by day
  feed               - Print the songs a user has not swiped yet
  repair-swipe-refs  - Rebuild User.swipeIds and Song.swipeIds from the swipes table`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.open(flags)
		},
	}
	root.PersistentFlags().StringVar(&flags.configPath, "config", "", "directory containing config.yaml")
	root.PersistentFlags().StringVar(&flags.sqlitePath, "sqlite", "", "use a sqlite database file instead of the configured database")
	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", "warn", "log level")

	root.AddCommand(
		discussionsCmd(&a),
		participantCmd(&a),
		libraryCmd(&a),
		feedCmd(&a),
		repairCmd(&a),
	)
	return root
}

func (a *app) open(flags rootFlags) error {
	cfg, err := config.LoadConfig(flags.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if flags.sqlitePath != "" {
		cfg.Database = config.DatabaseConfig{Type: "sqlite", Path: flags.sqlitePath}
	}
	logger := logging.Setup(os.Stderr, flags.logLevel, "admin")

	db, err := storage.InitDB(cfg.Database, logger)
	if err != nil {
		return err
	}
	if err := storage.AutoMigrateTables(db); err != nil {
		return err
	}

	userRepo := storage.NewGormUserRepository(db)
	songRepo := storage.NewGormSongRepository(db)
	swipeRepo := storage.NewGormSwipeRepository(db)
	discussionRepo := storage.NewGormDiscussionRepository(db)

	a.db = db
	a.discussions = services.NewDiscussionService(db, userRepo, songRepo, discussionRepo, nil)
	// 撤销历史只在 API 服务器中使用
	a.swipes = services.NewSwipeService(db, userRepo, songRepo, swipeRepo, nil)
	a.library = services.NewLibraryService(swipeRepo, songRepo)
	a.feed = services.NewFeedService(songRepo, userRepo, cfg.Feed)
	return nil
}

func parseID(arg, name string) (uint, error) {
	id, err := strconv.ParseUint(arg, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid %s %q", name, arg)
	}
	return uint(id), nil
}

func discussionsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "discussions <userID>",
		Short: "List a user's discussions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := parseID(args[0], "user id")
			if err != nil {
				return err
			}
			summaries, err := a.discussions.ListDiscussions(cmd.Context(), userID)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tWITH\tLAST MESSAGE\tAT")
			for _, s := range summaries {
				last, at := "", ""
				if s.LastMessage != nil {
					last = s.LastMessage.Text
					at = s.LastMessage.CreatedAt.Format(time.RFC3339)
				}
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", s.ID, s.Participant.Username, last, at)
			}
			return tw.Flush()
		},
	}
}

func participantCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "participant <userID> <discussionID>",
		Short: "Show the other participant of a discussion",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := parseID(args[0], "user id")
			if err != nil {
				return err
			}
			discussionID, err := parseID(args[1], "discussion id")
			if err != nil {
				return err
			}
			info, err := a.discussions.GetParticipantInfo(cmd.Context(), userID, discussionID)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\n", info.ID, info.Username)
			return nil
		},
	}
}

func libraryCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "library <userID>",
		Short: "Print a user's liked songs grouped by relative date",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := parseID(args[0], "user id")
			if err != nil {
				return err
			}
			groups, err := a.library.GetLibrary(cmd.Context(), userID, time.Now())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, g := range groups {
				fmt.Fprintf(out, "%s\n", g.Label)
				for _, e := range g.Entries {
					fmt.Fprintf(out, "  #%d %s (%s)\n", e.SongID, e.Title, e.Action)
				}
			}
			return nil
		},
	}
}

func feedCmd(a *app) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "feed <userID>",
		Short: "Print the songs a user has not swiped yet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := parseID(args[0], "user id")
			if err != nil {
				return err
			}
			songs, err := a.feed.GetFeed(cmd.Context(), userID, limit)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tTITLE\tBY\tKEY\tBPM")
			for _, s := range songs {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d\n", s.ID, s.Title, s.CreatorUsername, s.Key, s.BPM)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of songs (0 uses FEED.PAGE_SIZE)")
	return cmd
}

func repairCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "repair-swipe-refs",
		Short: "Rebuild swipe id lists on users and songs from the swipes table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			report, err := a.swipes.RepairReferences(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "users updated: %d\nsongs updated: %d\nids added: %d\nids removed: %d\n",
				report.UsersUpdated, report.SongsUpdated, report.IDsAdded, report.IDsRemoved)
			return nil
		},
	}
}
