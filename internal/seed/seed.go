package seed

import (
	"context"
	"fmt"
	"log"

	"tribune/internal/models"
	"tribune/internal/repository"

	"gorm.io/gorm"
)

// Options configure a seeding run.
type Options struct {
	NumUsers    int
	NumPosts    int
	ShouldClean bool
}

// builtinCategories exist in every seeded database so post assignment
// always has something to attach to.
var builtinCategories = map[string]string{
	"General":    "Anything that fits nowhere else",
	"Technology": "Hardware, software and everything between",
	"Go":         "The Go programming language",
	"Databases":  "Storage engines, query tuning, modeling",
	"DevOps":     "CI, deployment and infrastructure",
	"Science":    "Research, papers and discoveries",
	"Gaming":     "Video games and board games",
	"Music":      "Listening, playing, producing",
	"Books":      "Reading recommendations and reviews",
	"Travel":     "Places worth the trip",
}

// Seeder orchestrates demo data creation.
type Seeder struct {
	db      *gorm.DB
	factory *Factory
}

// NewSeeder creates a Seeder bound to the provided Gorm DB.
func NewSeeder(db *gorm.DB) *Seeder {
	return &Seeder{db: db, factory: NewFactory(db)}
}

// ClearAll removes all seedable data in dependency order.
func (s *Seeder) ClearAll() error {
	log.Println("Clearing existing data...")
	for _, table := range []string{
		"likes", "comments", "posts_categories", "posts", "categories",
		"user_ratings", "email_tokens", "reset_tokens", "refresh_tokens",
		"revoked_tokens", "users",
	} {
		if err := s.db.Exec("DELETE FROM " + table).Error; err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}
	return nil
}

// Seed populates the database: categories, users, posts spread over recent
// history, comments, reactions, and finally the denormalized ratings.
func (s *Seeder) Seed(opts Options) error {
	if opts.NumUsers <= 0 {
		opts.NumUsers = 50
	}
	if opts.NumPosts <= 0 {
		opts.NumPosts = 200
	}

	log.Printf("Seeding %d users and %d posts...", opts.NumUsers, opts.NumPosts)

	if opts.ShouldClean {
		if err := s.ClearAll(); err != nil {
			return err
		}
	}

	categories, err := s.seedCategories()
	if err != nil {
		return fmt.Errorf("seed categories: %w", err)
	}
	log.Printf("%d categories available", len(categories))

	users := make([]*models.User, 0, opts.NumUsers)
	for i := 0; i < opts.NumUsers; i++ {
		user, err := s.factory.CreateUser()
		if err != nil {
			return fmt.Errorf("seed user %d: %w", i, err)
		}
		users = append(users, user)
	}
	log.Printf("%d users created", len(users))

	posts, err := s.seedPosts(users, categories, opts.NumPosts)
	if err != nil {
		return fmt.Errorf("seed posts: %w", err)
	}
	log.Printf("%d posts created", len(posts))

	comments, err := s.seedComments(posts, users)
	if err != nil {
		return fmt.Errorf("seed comments: %w", err)
	}
	log.Printf("%d comments created", len(comments))

	if err := s.seedReactions(posts, comments, users); err != nil {
		return fmt.Errorf("seed reactions: %w", err)
	}

	if err := s.RecomputeRatings(users); err != nil {
		return fmt.Errorf("recompute ratings: %w", err)
	}

	log.Println("Seeding complete")
	return nil
}

func (s *Seeder) seedCategories() ([]*models.Category, error) {
	categories := make([]*models.Category, 0, len(builtinCategories))
	for name, description := range builtinCategories {
		category, err := s.factory.CreateCategory(name, description)
		if err != nil {
			return nil, err
		}
		categories = append(categories, category)
	}
	return categories, nil
}

func (s *Seeder) seedPosts(users []*models.User, categories []*models.Category, count int) ([]*models.Post, error) {
	rng := s.factory.rng

	posts := make([]*models.Post, 0, count)
	for i := 0; i < count; i++ {
		author := users[rng.Intn(len(users))]
		post := s.factory.BuildPost(author, 90)
		// a slice of drafts keeps the hidden-content paths exercised
		if rng.Intn(10) == 0 {
			post.Status = models.StatusInactive
		}
		posts = append(posts, post)
	}
	if err := s.factory.CreatePostsBatch(posts); err != nil {
		return nil, err
	}

	// Attach one to three categories per post
	for _, post := range posts {
		picked := map[uint]struct{}{}
		for n := rng.Intn(3) + 1; n > 0; n-- {
			category := categories[rng.Intn(len(categories))]
			if _, dup := picked[category.ID]; dup {
				continue
			}
			picked[category.ID] = struct{}{}
			err := s.db.Exec(
				"INSERT INTO posts_categories (post_id, category_id) VALUES (?, ?)",
				post.ID, category.ID,
			).Error
			if err != nil {
				return nil, err
			}
		}
	}

	return posts, nil
}

func (s *Seeder) seedComments(posts []*models.Post, users []*models.User) ([]*models.Comment, error) {
	rng := s.factory.rng

	var comments []*models.Comment
	for _, post := range posts {
		if post.Status != models.StatusActive {
			continue
		}
		for n := rng.Intn(6); n > 0; n-- {
			author := users[rng.Intn(len(users))]
			comment, err := s.factory.CreateComment(post, author)
			if err != nil {
				return nil, err
			}
			comments = append(comments, comment)
		}
	}
	return comments, nil
}

func (s *Seeder) seedReactions(posts []*models.Post, comments []*models.Comment, users []*models.User) error {
	rng := s.factory.rng

	for _, post := range posts {
		if post.Status != models.StatusActive {
			continue
		}
		for n := rng.Intn(8); n > 0; n-- {
			reactor := users[rng.Intn(len(users))]
			if err := s.factory.LikePost(post, reactor, s.factory.randomLikeType()); err != nil {
				return err
			}
		}
	}

	for _, comment := range comments {
		if rng.Intn(3) != 0 {
			continue
		}
		reactor := users[rng.Intn(len(users))]
		if err := s.factory.LikeComment(comment, reactor, s.factory.randomLikeType()); err != nil {
			return err
		}
	}

	return nil
}

// RecomputeRatings rebuilds the denormalized rating of every given user from
// the reactions on their content.
func (s *Seeder) RecomputeRatings(users []*models.User) error {
	ctx := context.Background()
	likes := repository.NewLikeRepository(s.db)
	userRepo := repository.NewUserRepository(s.db)

	for _, user := range users {
		postSum, err := likes.SumForAuthorPosts(ctx, user.ID)
		if err != nil {
			return err
		}
		commentSum, err := likes.SumForAuthorComments(ctx, user.ID)
		if err != nil {
			return err
		}
		if err := userRepo.UpsertRating(ctx, user.ID, postSum+commentSum); err != nil {
			return err
		}
	}
	return nil
}
