package entities

import (
	"context"
	"fmt"

	"github.com/roach88/beentity/internal/fixture"
	"github.com/roach88/beentity/internal/ir"
	"github.com/roach88/beentity/internal/store"
)

// ArticleKind is the stored kind of Article.
var ArticleKind = store.Kind{Name: "article", New: func() store.Entity { return &Article{} }}

// Article is a titled post. Author holds the email of an existing User.
type Article struct {
	store.Model
	Title     string
	Body      string
	Published bool
	Author    string
}

func (a *Article) Kind() string { return ArticleKind.Name }

// Attributes implements store.Entity.
func (a *Article) Attributes() (ir.IRObject, error) {
	return ir.IRObject{
		"title":     ir.IRString(a.Title),
		"body":      ir.IRString(a.Body),
		"published": ir.IRBool(a.Published),
		"author":    ir.IRString(a.Author),
	}, nil
}

// Restore implements store.Entity.
func (a *Article) Restore(attrs ir.IRObject) error {
	return restore(attrs, map[string]any{
		"title":     &a.Title,
		"body":      &a.Body,
		"published": &a.Published,
		"author":    &a.Author,
	})
}

// ArticleFactory provisions articles by title. Setting author requires the
// user to exist already; it is located through the User factory.
type ArticleFactory struct {
	fixture.Base
}

// NewArticleFactory is the fixture.Constructor for Article.
func NewArticleFactory(d fixture.Deps) fixture.Factory {
	return &ArticleFactory{Base: fixture.Base{Deps: d}}
}

func (f *ArticleFactory) Find(ctx context.Context, identifier string) (store.Entity, error) {
	return f.FindBy(ctx, ArticleKind, "title", identifier)
}

func (f *ArticleFactory) New(_ context.Context, identifier string) (store.Entity, error) {
	return &Article{Title: identifier}, nil
}

func (f *ArticleFactory) Purge(ctx context.Context) error {
	return f.PurgeKind(ctx, ArticleKind.Name)
}

func (f *ArticleFactory) Fields() fixture.Accessors {
	author := fixture.StringField(func(a *Article) string { return a.Author }, func(a *Article, v string) { a.Author = v })
	setAuthor := author.Set
	author.Set = func(ctx context.Context, e store.Entity, v ir.IRValue) error {
		if err := f.requireUser(ctx, ir.Text(v)); err != nil {
			return err
		}
		return setAuthor(ctx, e, v)
	}

	return fixture.Accessors{
		"title":     fixture.StringField(func(a *Article) string { return a.Title }, func(a *Article, v string) { a.Title = v }),
		"body":      fixture.StringField(func(a *Article) string { return a.Body }, func(a *Article, v string) { a.Body = v }),
		"published": fixture.BoolField(func(a *Article) bool { return a.Published }, func(a *Article, v bool) { a.Published = v }),
		"author":    author,
	}
}

func (f *ArticleFactory) requireUser(ctx context.Context, email string) error {
	users, err := f.Related(UserType)
	if err != nil {
		return fmt.Errorf("resolve author: %w", err)
	}
	_, err = fixture.Locate(ctx, users, email, true)
	return err
}
