// Command seed fills a LITRevu database with sample users, follows,
// tickets and reviews for local testing.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"

	"go.uber.org/zap"

	"litrevu/internal/app"
	"litrevu/internal/config"
	"litrevu/internal/logger"
	"litrevu/internal/model"
)

const samplePassword = "password123"

var sampleUsers = []string{"alice", "bob", "charlie", "david"}

// follower -> followed
var sampleFollows = [][2]string{
	{"alice", "bob"},
	{"alice", "charlie"},
	{"bob", "charlie"},
	{"charlie", "david"},
	{"david", "alice"},
	{"david", "bob"},
}

type sampleBook struct {
	Title       string
	Description string
}

var sampleBooks = []sampleBook{
	{"Le Petit Prince", "Un classique de la littérature française qui raconte l'histoire d'un petit prince venant d'une autre planète. Une belle réflexion sur l'amitié et l'amour."},
	{"1984", "Un roman dystopique fascinant qui dépeint une société sous surveillance constante. La vision de George Orwell reste étonnamment pertinente aujourd'hui."},
	{"Harry Potter à l'école des sorciers", "Le premier tome de la célèbre série qui nous plonge dans un monde magique extraordinaire. Une histoire captivante pour petits et grands."},
	{"Les Misérables", "L'œuvre magistrale de Victor Hugo qui suit le parcours de Jean Valjean. Une fresque sociale puissante sur la rédemption et la justice."},
	{"Le Comte de Monte-Cristo", "Une histoire de vengeance et de rédemption captivante. Alexandre Dumas nous offre une aventure inoubliable pleine de rebondissements."},
}

type sampleReview struct {
	Headline string
	Body     string
	Rating   int
}

var sampleReviews = []sampleReview{
	{"Une lecture incontournable !", "Ce livre m'a complètement transporté. L'écriture est fluide, les personnages sont attachants et l'histoire est prenante du début à la fin.", 5},
	{"Bonne surprise", "Je ne m'attendais pas à autant apprécier ce livre. L'intrigue est bien menée et les thèmes abordés sont très actuels.", 4},
	{"Mitigé", "Quelques passages sont vraiment excellents, mais l'ensemble manque parfois de rythme. Les personnages secondaires mériteraient plus de développement.", 3},
	{"Un classique qui mérite sa réputation", "Une œuvre majeure qui continue de résonner avec notre époque. La profondeur des personnages et la qualité de l'écriture sont remarquables.", 5},
	{"Lecture agréable", "Un bon moment de lecture, même si certains aspects de l'histoire sont prévisibles. Le style est agréable et l'univers bien construit.", 4},
}

func main() {
	if err := run(); err != nil {
		log.Fatalf("Seed failed: %v", err)
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := logger.Init(cfg.Env); err != nil {
		return fmt.Errorf("failed to init logger: %w", err)
	}
	defer logger.Sync()

	if cfg.Storage == config.StorageMemory {
		logger.Warn("STORAGE=memory, seeded data will vanish when this command exits")
	}

	ctx := context.Background()
	a, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	users, created, err := seedUsers(ctx, a)
	if err != nil {
		return err
	}
	if err := seedFollows(ctx, a, users); err != nil {
		return err
	}
	if created == 0 {
		logger.Info("sample users already present, skipping tickets and reviews")
		return nil
	}
	n, err := seedContent(ctx, a, users)
	if err != nil {
		return err
	}

	logger.Info("sample data generated",
		zap.Int("users_created", created),
		zap.Int("tickets", n),
	)
	return nil
}

func seedUsers(ctx context.Context, a *app.App) (map[string]*model.User, int, error) {
	users := make(map[string]*model.User, len(sampleUsers))
	created := 0

	for _, name := range sampleUsers {
		existing, err := a.Repos.Users.GetByUsername(ctx, name)
		switch {
		case err == nil:
			logger.Info("user exists, skipping", zap.String("username", name))
			users[name] = existing
			continue
		case !errors.Is(err, model.ErrUserNotFound):
			return nil, 0, fmt.Errorf("lookup %s: %w", name, err)
		}

		u, err := a.Users.Register(ctx, &model.RegisterRequest{
			Username:        name,
			Email:           name + "@example.com",
			Password:        samplePassword,
			PasswordConfirm: samplePassword,
		}, nil)
		if err != nil {
			return nil, 0, fmt.Errorf("register %s: %w", name, err)
		}
		logger.Info("user created", zap.String("username", name), zap.Int64("id", u.ID))
		users[name] = u
		created++
	}
	return users, created, nil
}

func seedFollows(ctx context.Context, a *app.App, users map[string]*model.User) error {
	for _, edge := range sampleFollows {
		_, err := a.Relationships.CreateFollow(ctx, users[edge[0]].ID, edge[1])
		if err != nil && !errors.Is(err, model.ErrAlreadyFollowing) {
			return fmt.Errorf("follow %s -> %s: %w", edge[0], edge[1], err)
		}
	}
	return nil
}

// seedContent creates one ticket per book. Every other ticket gets a
// review from the next user in line, and the last book is posted as a
// ticket and review in one go.
func seedContent(ctx context.Context, a *app.App, users map[string]*model.User) (int, error) {
	tickets := 0
	for i, book := range sampleBooks {
		owner := users[sampleUsers[i%len(sampleUsers)]]
		sample := sampleReviews[i%len(sampleReviews)]
		rating := sample.Rating
		review := model.ReviewRequest{Rating: &rating, Headline: sample.Headline, Body: sample.Body}
		ticket := model.TicketRequest{Title: book.Title, Description: book.Description}

		if i == len(sampleBooks)-1 {
			if _, err := a.Reviews.CreateReviewForNewTicket(ctx, owner.ID, &model.TicketReviewRequest{
				Ticket: ticket,
				Review: review,
			}, nil); err != nil {
				return tickets, fmt.Errorf("ticket and review %q: %w", book.Title, err)
			}
			tickets++
			continue
		}

		t, err := a.Tickets.Create(ctx, owner.ID, &ticket, nil)
		if err != nil {
			return tickets, fmt.Errorf("ticket %q: %w", book.Title, err)
		}
		tickets++

		if i%2 == 1 {
			continue
		}
		reviewer := users[sampleUsers[(i+1)%len(sampleUsers)]]
		if _, err := a.Reviews.CreateForTicket(ctx, reviewer.ID, t.ID, &review); err != nil {
			return tickets, fmt.Errorf("review %q: %w", book.Title, err)
		}
	}
	return tickets, nil
}
