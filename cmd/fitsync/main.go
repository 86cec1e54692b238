package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"fitsync-go/internal/app"
	"fitsync-go/internal/config"
	"fitsync-go/internal/fitsync"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// jsonOut is set by the global --json flag.
var jsonOut bool

// newApp reads the config and creates a FitApp. The caller must defer a.Close().
// command identifies the CLI command being run (e.g. "profile show").
// An encrypted cache is unlocked when a passphrase is available.
func newApp(command string) (*app.FitApp, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.ReadFromFile(defaults["config_path"])
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	a, err := app.NewFitApp(cfg, command, app.Options{StderrLevel: slog.LevelWarn})
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}

	if a.NeedsUnlock() && a.EncryptionConfigured() {
		pass, err := readPassphrase("Cache passphrase: ", false)
		switch {
		case errors.Is(err, errNoPassphrase):
			// Loaders treat a locked cache as empty.
		case err != nil:
			a.Close()
			return nil, err
		default:
			if err := a.Unlock(pass); err != nil {
				a.Close()
				return nil, err
			}
		}
	}
	return a, nil
}

var rootCmd = &cobra.Command{
	Use:          "fitsync",
	Short:        "Fitness tracker sync client",
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// The envelope carries the error in JSON mode.
		cmd.Root().SilenceErrors = jsonOut
	},
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		userID, _ := cmd.Flags().GetString("user")
		if userID == "" {
			userID = uuid.New().String()
		}

		cfg := config.NewConfig(userID, defaults["base_dir"])
		if err := config.Init(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults["config_path"])
		fmt.Printf("User ID:  %s\n", userID)
		fmt.Printf("Base Dir: %s\n", defaults["base_dir"])
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg, err := config.ReadFromFile(defaults["config_path"])
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}
		if jsonOut {
			return render(cfg, nil, nil)
		}

		fmt.Printf("Configuration from %s:\n\n", defaults["config_path"])
		fmt.Printf("User ID:   %s\n", cfg.UserID)
		fmt.Printf("Base Dir:  %s\n", cfg.BaseDir)
		fmt.Printf("Log Dir:   %s\n", cfg.LogDir)
		fmt.Printf("Store:     %s %s\n", cfg.Store.Type, cfg.Store.DataDir)
		fmt.Printf("Cache:     %s %s (encrypted: %t)\n", cfg.Cache.Type, cfg.Cache.Dir, cfg.Cache.Encrypted)
		fmt.Printf("Freshness: %s\n", cfg.Catalog.Freshness)
		fmt.Printf("Search:    %g/s burst %d\n", cfg.Search.RatePerSecond, cfg.Search.Burst)
		return nil
	},
}

// profile command
var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "View and edit your profile",
}

var profileShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show your profile",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("profile show")
		if err != nil {
			return err
		}
		defer a.Close()

		p, err := a.Profile(cmd.Context())
		return render(p, err, func() { printProfile(p) })
	},
}

var profileUpdateCmd = &cobra.Command{
	Use:   "update",
	Short: "Update profile fields",
	RunE: func(cmd *cobra.Command, args []string) error {
		var upd fitsync.ProfileUpdate
		flags := cmd.Flags()
		if flags.Changed("name") {
			v, _ := flags.GetString("name")
			upd.DisplayName = &v
		}
		if flags.Changed("bio") {
			v, _ := flags.GetString("bio")
			upd.Bio = &v
		}
		if flags.Changed("avatar") {
			v, _ := flags.GetString("avatar")
			upd.AvatarURL = &v
		}
		if flags.Changed("username") {
			v, _ := flags.GetString("username")
			upd.Username = &v
		}
		if flags.Changed("private") {
			v, _ := flags.GetBool("private")
			upd.IsPrivate = &v
		}

		a, err := newApp("profile update")
		if err != nil {
			return err
		}
		defer a.Close()

		p, err := a.UpdateProfile(cmd.Context(), upd)
		return render(p, err, func() { printProfile(p) })
	},
}

var profileBadgeCmd = &cobra.Command{
	Use:   "badge",
	Short: "Manage badges",
}

var profileBadgeAddCmd = &cobra.Command{
	Use:   "add BADGE",
	Short: "Award a badge",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("profile badge add")
		if err != nil {
			return err
		}
		defer a.Close()

		p, err := a.AddBadge(cmd.Context(), args[0])
		return render(p, err, func() { fmt.Printf("Badges: %s\n", strings.Join(p.Badges, ", ")) })
	},
}

var profileBadgeRemoveCmd = &cobra.Command{
	Use:   "remove BADGE",
	Short: "Remove a badge",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("profile badge remove")
		if err != nil {
			return err
		}
		defer a.Close()

		p, err := a.RemoveBadge(cmd.Context(), args[0])
		return render(p, err, func() {
			if p == nil {
				fmt.Println("No profile.")
				return
			}
			fmt.Printf("Badges: %s\n", strings.Join(p.Badges, ", "))
		})
	},
}

// crew command
var crewCmd = &cobra.Command{
	Use:   "crew",
	Short: "Manage your crew",
}

var crewListCmd = &cobra.Command{
	Use:   "list",
	Short: "List crew, incoming and sent requests",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("crew list")
		if err != nil {
			return err
		}
		defer a.Close()

		v, err := a.Crew(cmd.Context())
		return render(v, err, func() {
			printMembers("Crew", v.Crew)
			printMembers("Requests", v.Requests)
			printMembers("Sent", v.SentRequests)
		})
	},
}

var crewAddCmd = &cobra.Command{
	Use:   "add USER_ID",
	Short: "Send a crew request",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("crew add")
		if err != nil {
			return err
		}
		defer a.Close()

		c, err := a.AddCrewMember(cmd.Context(), args[0])
		return render(c, err, func() { fmt.Printf("Request %s sent to %s\n", c.ID, c.ReceiverID) })
	},
}

var crewAcceptCmd = &cobra.Command{
	Use:   "accept RECORD_ID",
	Short: "Accept a crew request",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("crew accept")
		if err != nil {
			return err
		}
		defer a.Close()

		c, err := a.AcceptCrewRequest(cmd.Context(), args[0])
		return render(c, err, func() { fmt.Printf("Accepted request from %s\n", c.RequesterID) })
	},
}

var crewRemoveCmd = &cobra.Command{
	Use:   "remove RECORD_ID",
	Short: "Remove a crew member or request",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("crew remove")
		if err != nil {
			return err
		}
		defer a.Close()

		err = a.RemoveCrewMember(cmd.Context(), args[0])
		return render(nil, err, func() { fmt.Println("Removed.") })
	},
}

var crewSearchCmd = &cobra.Command{
	Use:   "search TERM",
	Short: "Find users to add",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("crew search")
		if err != nil {
			return err
		}
		defer a.Close()

		users := a.SearchUsers(cmd.Context(), args[0])
		return render(users, nil, func() {
			if len(users) == 0 {
				fmt.Println("No users found.")
				return
			}
			for _, u := range users {
				fmt.Printf("%-36s  %-20s  %s\n", u.ID, u.Username, u.DisplayName)
			}
		})
	},
}

// exercises command
var exercisesCmd = &cobra.Command{
	Use:   "exercises",
	Short: "Browse the exercise catalog",
}

var exercisesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List exercises",
	RunE: func(cmd *cobra.Command, args []string) error {
		category, _ := cmd.Flags().GetString("category")

		a, err := newApp("exercises list")
		if err != nil {
			return err
		}
		defer a.Close()

		all, err := a.Exercises(cmd.Context(), "")
		var out []fitsync.Exercise
		for _, e := range all {
			if category == "" || e.MuscleGroup == category {
				out = append(out, e)
			}
		}
		return render(out, err, func() { printExercises(out) })
	},
}

var exercisesSearchCmd = &cobra.Command{
	Use:   "search QUERY",
	Short: "Search exercises by name or muscle group",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("exercises search")
		if err != nil {
			return err
		}
		defer a.Close()

		out, err := a.Exercises(cmd.Context(), args[0])
		return render(out, err, func() { printExercises(out) })
	},
}

var exercisesCategoriesCmd = &cobra.Command{
	Use:   "categories",
	Short: "List muscle groups",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("exercises categories")
		if err != nil {
			return err
		}
		defer a.Close()

		cats, err := a.Categories(cmd.Context())
		return render(cats, err, func() {
			for _, c := range cats {
				fmt.Println(c)
			}
		})
	},
}

var exercisesAddCmd = &cobra.Command{
	Use:   "add NAME",
	Short: "Add a custom exercise",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		group, _ := cmd.Flags().GetString("group")

		a, err := newApp("exercises add")
		if err != nil {
			return err
		}
		defer a.Close()

		e, err := a.CreateExercise(cmd.Context(), fitsync.ExerciseInput{Name: args[0], MuscleGroup: group})
		return render(e, err, func() { fmt.Printf("Created %s (%s)\n", e.Name, e.ID) })
	},
}

var exercisesUpdateCmd = &cobra.Command{
	Use:   "update ID",
	Short: "Edit a custom exercise",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var upd fitsync.ExerciseUpdate
		if cmd.Flags().Changed("name") {
			v, _ := cmd.Flags().GetString("name")
			upd.Name = &v
		}
		if cmd.Flags().Changed("group") {
			v, _ := cmd.Flags().GetString("group")
			upd.MuscleGroup = &v
		}

		a, err := newApp("exercises update")
		if err != nil {
			return err
		}
		defer a.Close()

		e, err := a.UpdateExercise(cmd.Context(), args[0], upd)
		return render(e, err, func() { fmt.Printf("Updated %s: %s (%s)\n", e.ID, e.Name, e.MuscleGroup) })
	},
}

var exercisesDeleteCmd = &cobra.Command{
	Use:   "delete ID",
	Short: "Delete a custom exercise",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("exercises delete")
		if err != nil {
			return err
		}
		defer a.Close()

		err = a.DeleteExercise(cmd.Context(), args[0])
		return render(nil, err, func() { fmt.Println("Deleted.") })
	},
}

// workouts command
var workoutsCmd = &cobra.Command{
	Use:   "workouts",
	Short: "Log and review workouts",
}

var workoutsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List workouts, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		on, err := dateFlag(cmd)
		if err != nil {
			return err
		}

		a, err := newApp("workouts list")
		if err != nil {
			return err
		}
		defer a.Close()

		ws, err := a.Workouts(cmd.Context(), on)
		return render(ws, err, func() {
			if len(ws) == 0 {
				fmt.Println("No workouts.")
				return
			}
			for _, w := range ws {
				fmt.Printf("%s  %s  %s\n", w.Date.Local().Format("2006-01-02 15:04"), w.ID, w.Name)
				for _, we := range w.Exercises {
					fmt.Printf("    %d. %s  (%s)\n", we.Position+1, we.ExerciseID, we.ID)
				}
			}
		})
	},
}

var workoutsCreateCmd = &cobra.Command{
	Use:   "create NAME",
	Short: "Log a workout",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		on, err := dateFlag(cmd)
		if err != nil {
			return err
		}
		notes, _ := cmd.Flags().GetString("notes")
		exercises, _ := cmd.Flags().GetStringSlice("exercise")

		in := fitsync.NewWorkout{Name: args[0], Notes: notes, ExerciseIDs: exercises}
		if on != nil {
			in.Date = *on
		}

		a, err := newApp("workouts create")
		if err != nil {
			return err
		}
		defer a.Close()

		w, err := a.CreateWorkout(cmd.Context(), in)
		return render(w, err, func() {
			fmt.Printf("Created workout %s with %d exercise(s)\n", w.ID, len(w.Exercises))
			for _, we := range w.Exercises {
				fmt.Printf("    %s  %s\n", we.ID, we.ExerciseID)
			}
		})
	},
}

var workoutsDeleteCmd = &cobra.Command{
	Use:   "delete ID",
	Short: "Delete a workout",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("workouts delete")
		if err != nil {
			return err
		}
		defer a.Close()

		err = a.DeleteWorkout(cmd.Context(), args[0])
		return render(nil, err, func() { fmt.Println("Deleted.") })
	},
}

// sets command
var setsCmd = &cobra.Command{
	Use:   "sets",
	Short: "Log sets for a workout exercise",
}

var setsListCmd = &cobra.Command{
	Use:   "list WORKOUT_EXERCISE_ID",
	Short: "List sets",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("sets list")
		if err != nil {
			return err
		}
		defer a.Close()

		sets, err := a.Sets(cmd.Context(), args[0])
		return render(sets, err, func() {
			if len(sets) == 0 {
				fmt.Println("No sets.")
				return
			}
			for _, s := range sets {
				printSet(&s)
			}
		})
	},
}

var setsAddCmd = &cobra.Command{
	Use:   "add WORKOUT_EXERCISE_ID",
	Short: "Log a set",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		weight, _ := cmd.Flags().GetFloat64("weight")
		reps, _ := cmd.Flags().GetInt("reps")

		a, err := newApp("sets add")
		if err != nil {
			return err
		}
		defer a.Close()

		s, err := a.AddSet(cmd.Context(), fitsync.NewSet{WorkoutExerciseID: args[0], Weight: weight, Reps: reps})
		return render(s, err, func() { printSet(s) })
	},
}

var setsToggleCmd = &cobra.Command{
	Use:   "toggle WORKOUT_EXERCISE_ID SET_ID",
	Short: "Mark a set complete or incomplete",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("sets toggle")
		if err != nil {
			return err
		}
		defer a.Close()

		s, err := a.ToggleSet(cmd.Context(), args[0], args[1])
		return render(s, err, func() { printSet(s) })
	},
}

var setsDuplicateCmd = &cobra.Command{
	Use:   "duplicate WORKOUT_EXERCISE_ID [FROM_SET_ID]",
	Short: "Log a copy of a set, or a blank one",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		from := ""
		if len(args) == 2 {
			from = args[1]
		}

		a, err := newApp("sets duplicate")
		if err != nil {
			return err
		}
		defer a.Close()

		s, err := a.DuplicateSet(cmd.Context(), args[0], from)
		return render(s, err, func() { printSet(s) })
	},
}

var setsDeleteCmd = &cobra.Command{
	Use:   "delete SET_ID",
	Short: "Delete a set",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("sets delete")
		if err != nil {
			return err
		}
		defer a.Close()

		err = a.DeleteSet(cmd.Context(), args[0])
		return render(nil, err, func() { fmt.Println("Deleted.") })
	},
}

// cache command
var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect the device cache",
}

var cacheStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show cached snapshots",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("cache status")
		if err != nil {
			return err
		}
		defer a.Close()

		status, err := a.CacheStatus()
		return render(status, err, func() {
			for _, s := range status {
				switch {
				case s.Locked:
					fmt.Printf("%-16s  locked\n", s.Key)
				case !s.Present:
					fmt.Printf("%-16s  empty\n", s.Key)
				default:
					line := fmt.Sprintf("%-16s  %s  saved %s  user %s",
						s.Key, humanize.Bytes(uint64(s.Bytes)), humanize.Time(s.SavedAt), s.UserID)
					if s.Fresh != nil && !*s.Fresh {
						line += "  [stale]"
					}
					fmt.Println(line)
				}
			}
		})
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Drop all cached snapshots",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("cache clear")
		if err != nil {
			return err
		}
		defer a.Close()

		err = a.ClearCache()
		return render(nil, err, func() { fmt.Println("Cache cleared.") })
	},
}

var cacheKeygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Generate the cache encryption key",
	RunE: func(cmd *cobra.Command, args []string) error {
		pass, err := readPassphrase("New cache passphrase: ", true)
		if err != nil {
			return err
		}

		a, err := newApp("cache keygen")
		if err != nil {
			return err
		}
		defer a.Close()

		err = a.GenerateKey(pass)
		return render(nil, err, func() { fmt.Println("Cache key generated. Existing snapshots were cleared.") })
	},
}

// store command
var storeCmd = &cobra.Command{
	Use:   "store",
	Short: "Manage the record store",
}

var storeBackupCmd = &cobra.Command{
	Use:   "backup DEST",
	Short: "Write a copy of the store to DEST",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("store backup")
		if err != nil {
			return err
		}
		defer a.Close()

		err = a.BackupStore(args[0])
		return render(nil, err, func() { fmt.Printf("Store backed up to %s\n", args[0]) })
	},
}

var storeSchemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the store schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("store schema")
		if err != nil {
			return err
		}
		defer a.Close()

		schema, err := a.StoreSchema()
		return render(schema, err, func() { fmt.Print(schema) })
	},
}

// metrics command
var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Load everything once and print the recorded counters",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("metrics")
		if err != nil {
			return err
		}
		defer a.Close()

		ctx := cmd.Context()
		// Failures are already counted; only the counters are reported.
		a.Profile(ctx)
		a.Exercises(ctx, "")
		a.Crew(ctx)
		a.Workouts(ctx, nil)

		samples, err := a.Metrics()
		return render(samples, err, func() {
			for _, s := range samples {
				fmt.Printf("%-60s %g\n", s.Name, s.Value)
			}
		})
	},
}

// dateFlag parses --date as a local calendar day. An unset flag gives nil.
func dateFlag(cmd *cobra.Command) (*time.Time, error) {
	s, _ := cmd.Flags().GetString("date")
	if s == "" {
		return nil, nil
	}
	d, err := time.ParseInLocation("2006-01-02", s, time.Local)
	if err != nil {
		return nil, fmt.Errorf("parsing --date: %w", err)
	}
	return &d, nil
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "Print results as a JSON envelope")

	// config subcommands
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)
	configInitCmd.Flags().String("user", "", "User ID to sign in as (default: a new UUID)")

	// profile subcommands
	profileCmd.AddCommand(profileShowCmd)
	profileCmd.AddCommand(profileUpdateCmd)
	profileCmd.AddCommand(profileBadgeCmd)
	profileBadgeCmd.AddCommand(profileBadgeAddCmd)
	profileBadgeCmd.AddCommand(profileBadgeRemoveCmd)
	profileUpdateCmd.Flags().String("name", "", "Display name")
	profileUpdateCmd.Flags().String("bio", "", "Bio")
	profileUpdateCmd.Flags().String("avatar", "", "Avatar URL")
	profileUpdateCmd.Flags().String("username", "", "Username")
	profileUpdateCmd.Flags().Bool("private", false, "Hide the profile from search")

	// crew subcommands
	crewCmd.AddCommand(crewListCmd)
	crewCmd.AddCommand(crewAddCmd)
	crewCmd.AddCommand(crewAcceptCmd)
	crewCmd.AddCommand(crewRemoveCmd)
	crewCmd.AddCommand(crewSearchCmd)

	// exercises subcommands
	exercisesCmd.AddCommand(exercisesListCmd)
	exercisesCmd.AddCommand(exercisesSearchCmd)
	exercisesCmd.AddCommand(exercisesCategoriesCmd)
	exercisesCmd.AddCommand(exercisesAddCmd)
	exercisesCmd.AddCommand(exercisesUpdateCmd)
	exercisesCmd.AddCommand(exercisesDeleteCmd)
	exercisesListCmd.Flags().StringP("category", "c", "", "Only show this muscle group")
	exercisesAddCmd.Flags().StringP("group", "g", "", "Muscle group")
	exercisesAddCmd.MarkFlagRequired("group")
	exercisesUpdateCmd.Flags().String("name", "", "New name")
	exercisesUpdateCmd.Flags().StringP("group", "g", "", "New muscle group")

	// workouts subcommands
	workoutsCmd.AddCommand(workoutsListCmd)
	workoutsCmd.AddCommand(workoutsCreateCmd)
	workoutsCmd.AddCommand(workoutsDeleteCmd)
	workoutsListCmd.Flags().StringP("date", "d", "", "Only show workouts on this day (YYYY-MM-DD)")
	workoutsCreateCmd.Flags().StringP("date", "d", "", "Workout day (YYYY-MM-DD, default now)")
	workoutsCreateCmd.Flags().String("notes", "", "Notes")
	workoutsCreateCmd.Flags().StringSliceP("exercise", "e", nil, "Exercise ID, in order (repeatable)")

	// sets subcommands
	setsCmd.AddCommand(setsListCmd)
	setsCmd.AddCommand(setsAddCmd)
	setsCmd.AddCommand(setsToggleCmd)
	setsCmd.AddCommand(setsDuplicateCmd)
	setsCmd.AddCommand(setsDeleteCmd)
	setsAddCmd.Flags().Float64P("weight", "w", 0, "Weight")
	setsAddCmd.Flags().IntP("reps", "r", 0, "Repetitions")

	// cache subcommands
	cacheCmd.AddCommand(cacheStatusCmd)
	cacheCmd.AddCommand(cacheClearCmd)
	cacheCmd.AddCommand(cacheKeygenCmd)

	storeCmd.AddCommand(storeBackupCmd)
	storeCmd.AddCommand(storeSchemaCmd)

	// root commands
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(profileCmd)
	rootCmd.AddCommand(crewCmd)
	rootCmd.AddCommand(exercisesCmd)
	rootCmd.AddCommand(workoutsCmd)
	rootCmd.AddCommand(setsCmd)
	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(storeCmd)
	rootCmd.AddCommand(metricsCmd)
}
