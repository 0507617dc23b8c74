package main

import (
	"context"
	"fmt"

	"github.com/samber/do/v2"
	"github.com/spf13/cobra"

	"github.com/askhub/askhub-server/internal/domain"
	apperrors "github.com/askhub/askhub-server/internal/errors"
	"github.com/askhub/askhub-server/internal/service"
	"github.com/askhub/askhub-server/internal/session"
)

type seedUser struct {
	username    string
	displayName string
	role        domain.Role
}

type seedQuestion struct {
	asker   int
	title   string
	body    string
	tags    []string
	answers []seedAnswer
	comment string
}

type seedAnswer struct {
	author   int
	body     string
	accepted bool
	upvoters []int
}

var seedUsers = []seedUser{
	{"grace", "Grace Hopper", domain.RoleAdmin},
	{"linus", "Linus T.", domain.RoleUser},
	{"barbara", "Barbara Liskov", domain.RoleModerator},
	{"ken", "Ken Thompson", domain.RoleUser},
}

var seedQuestions = []seedQuestion{
	{
		asker: 1,
		title: "How do I stop a goroutine from the outside?",
		body:  "I start a worker goroutine in a loop and need to stop it when the request is cancelled.",
		tags:  []string{"go", "concurrency"},
		answers: []seedAnswer{
			{author: 3, body: "Pass a context.Context and select on ctx.Done() inside the loop.", accepted: true, upvoters: []int{0, 2}},
			{author: 2, body: "A done channel works too, but context composes better with timeouts."},
		},
		comment: "Is the worker blocked on I/O or spinning?",
	},
	{
		asker: 3,
		title: "Why does my Java build take ten minutes on CI?",
		body:  "Locally Gradle finishes in under a minute. On CI every build starts from scratch.",
		tags:  []string{"java", "gradle", "ci"},
		answers: []seedAnswer{
			{author: 0, body: "Your CI cache key probably changes every run. Cache ~/.gradle keyed on the lockfile.", upvoters: []int{3}},
		},
	},
	{
		asker: 2,
		title: "What is the Liskov substitution principle in practice?",
		body:  "Textbook definitions are abstract. What does a violation look like in real code?",
		tags:  []string{"design", "oop"},
		answers: []seedAnswer{
			{author: 2, body: "A Square that overrides SetWidth on a Rectangle is the classic example.", accepted: true, upvoters: []int{0, 1, 3}},
		},
		comment: "An example in Go with interfaces would help.",
	},
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Fill an empty store with demo users, questions and answers",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withContainer(func(i do.Injector) error {
			return seed(cmd.Context(), i)
		})
	},
}

func seed(ctx context.Context, i do.Injector) error {
	users := do.MustInvoke[*service.UserService](i)
	questions := do.MustInvoke[*service.QuestionService](i)
	answers := do.MustInvoke[*service.AnswerService](i)
	votes := do.MustInvoke[*service.VoteService](i)
	comments := do.MustInvoke[*service.CommentService](i)
	tags := do.MustInvoke[*service.TagService](i)

	as := make([]context.Context, len(seedUsers))
	for n, su := range seedUsers {
		u, err := users.Register(ctx, service.RegisterInput{
			Email:       su.username + "@askhub.example",
			Username:    su.username,
			DisplayName: su.displayName,
			Role:        su.role,
		})
		if apperrors.Is(err, apperrors.ErrConflict) {
			return fmt.Errorf("store already seeded: %w", err)
		}
		if err != nil {
			return fmt.Errorf("seed user %s: %w", su.username, err)
		}
		sess, err := users.LoadSession(ctx, u.ID)
		if err != nil {
			return err
		}
		as[n] = session.With(ctx, sess)
		fmt.Printf("user     %s  %s\n", u.ID, u.Username)
	}

	for _, sq := range seedQuestions {
		q, err := questions.Ask(as[sq.asker], service.AskInput{Title: sq.title, Body: sq.body, Tags: sq.tags})
		if err != nil {
			return fmt.Errorf("seed question %q: %w", sq.title, err)
		}
		fmt.Printf("question %s  %s\n", q.ID, q.Title)

		for _, sa := range sq.answers {
			a, err := answers.Post(as[sa.author], q.ID, sa.body)
			if err != nil {
				return fmt.Errorf("seed answer: %w", err)
			}
			for _, voter := range sa.upvoters {
				if _, err := votes.Vote(as[voter], domain.ItemAnswer, a.ID, domain.VoteUp); err != nil {
					return fmt.Errorf("seed vote: %w", err)
				}
			}
			if sa.accepted {
				if _, err := answers.Accept(as[sq.asker], a.ID); err != nil {
					return fmt.Errorf("seed accept: %w", err)
				}
			}
		}

		if sq.comment != "" {
			commenter := (sq.asker + 1) % len(as)
			if _, err := comments.Add(as[commenter], domain.ItemQuestion, q.ID, sq.comment); err != nil {
				return fmt.Errorf("seed comment: %w", err)
			}
		}
	}

	report, err := tags.Sync(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("tags     %d across %d questions\n", report.Tags, report.Questions)
	return nil
}
