package cli

import (
	"errors"
	"fmt"
	"time"

	"hive/internal/database"
	"hive/internal/domain"
	"hive/internal/models"
	"hive/internal/repository"
	"hive/internal/service"

	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

func init() {
	rootCmd.AddCommand(seedCmd)
	seedCmd.Flags().String("password", "password123", "Password for the sample members")
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Insert sample members and listings for local development",
	Long: `Creates a few verified members with offers and wants around a shared
neighbourhood. Members that already exist are left untouched.`,
	RunE: runSeed,
}

type seedMember struct {
	email     string
	firstName string
	lastName  string
	listings  []service.ListingInput
}

func ptr[T any](v T) *T { return &v }

var seedMembers = []seedMember{
	{
		email: "ayse@thehive.local", firstName: "Ayse", lastName: "Demir",
		listings: []service.ListingInput{
			{
				Type: domain.ListingTypeOffer, Title: "Guitar lessons for beginners",
				Description: "Chords, strumming and your first song.", TimeRequired: 2,
				Location: "Kadikoy", Latitude: ptr(40.9909), Longitude: ptr(29.0303),
				Tags: []string{"music", "teaching"},
			},
			{
				Type: domain.ListingTypeOffer, Title: "Community garden workshop",
				Description: "Planting and composting basics, bring gloves.", TimeRequired: 1,
				ActivityType: domain.ActivityGroup, PersonCount: 4, OfferType: domain.OfferTypeRecurring,
				Location: "Moda park", Latitude: ptr(40.9840), Longitude: ptr(29.0258),
				Tags: []string{"gardening", "outdoors"},
			},
		},
	},
	{
		email: "mert@thehive.local", firstName: "Mert", lastName: "Kaya",
		listings: []service.ListingInput{
			{
				Type: domain.ListingTypeWant, Title: "Help moving boxes",
				Description: "Third floor, no lift. About 20 boxes.", TimeRequired: 3,
				Location: "Besiktas", Latitude: ptr(41.0422), Longitude: ptr(29.0083),
				Tags: []string{"moving"},
			},
		},
	},
	{
		email: "elif@thehive.local", firstName: "Elif", lastName: "Sahin",
		listings: []service.ListingInput{
			{
				Type: domain.ListingTypeOffer, Title: "Resume review over video call",
				Description: "Feedback on structure and wording.", TimeRequired: 1,
				LocationType: domain.LocationTypeRemote, Tags: []string{"career", "writing"},
			},
			{
				Type: domain.ListingTypeWant, Title: "Conversation practice in German",
				TimeRequired: 2, LocationType: domain.LocationTypeRemote, Tags: []string{"language"},
			},
		},
	},
}

func runSeed(cmd *cobra.Command, args []string) error {
	password, _ := cmd.Flags().GetString("password")
	cfg, log, err := bootstrap()
	if err != nil {
		return err
	}
	db, err := openDB(cfg, log)
	if err != nil {
		return err
	}
	hash, err := database.HashPassword(password)
	if err != nil {
		return err
	}

	users := repository.NewUserRepository(db)
	listings := repository.NewListingRepository(db)
	exchanges := repository.NewExchangeRepository(db)
	timebank := service.NewTimeBankService(db, repository.NewTimeBankRepository(db), repository.NewTransactionRepository(db), cfg.Ledger.InitialGrant, log)
	listingSvc := service.NewListingService(db, listings, exchanges, users, timebank, cfg.Ledger.BrowseRadiusKm, log)

	out := cmd.OutOrStdout()
	for _, m := range seedMembers {
		_, err := users.GetByEmail(m.email)
		if err == nil {
			fmt.Fprintf(out, "skip %s (exists)\n", m.email)
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		now := time.Now()
		u := &models.User{
			Email:           m.email,
			FirstName:       m.firstName,
			LastName:        m.lastName,
			PasswordHash:    hash,
			Role:            domain.RoleUser,
			EmailVerifiedAt: &now,
		}
		if err := users.Create(u); err != nil {
			return fmt.Errorf("create %s: %w", m.email, err)
		}
		for _, in := range m.listings {
			l, err := listingSvc.Create(cmd.Context(), u.ID, in)
			if err != nil {
				return fmt.Errorf("create listing %q: %w", in.Title, err)
			}
			fmt.Fprintf(out, "  %s #%d %s (%dh)\n", l.Type, l.ID, l.Title, l.TimeRequired)
		}
		fmt.Fprintf(out, "created %s (id %d)\n", u.Email, u.ID)
	}
	return nil
}
