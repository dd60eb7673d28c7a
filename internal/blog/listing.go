package blog

import (
	"context"
	"strings"

	"quillpress/internal/models"
)

// ListPosts returns one page of every visible post, newest first.
func (s *Service) ListPosts(ctx context.Context, page int) (*models.PostPage, error) {
	return s.listPage(ctx, models.PostFilter{}, page, PageSize)
}

// Search matches query case-insensitively against post titles, author
// names and tag names. An empty query lists every visible post.
func (s *Service) Search(ctx context.Context, query string, page int) (*models.PostPage, error) {
	return s.listPage(ctx, models.PostFilter{Query: strings.TrimSpace(query)}, page, PageSize)
}

// CategoryPosts returns the category and one page of its visible posts.
func (s *Service) CategoryPosts(ctx context.Context, slug string, page int) (*models.Category, *models.PostPage, error) {
	c, err := s.categories.FindBySlug(ctx, slug)
	if err != nil {
		return nil, nil, storeErr("find category", err)
	}
	if c == nil {
		return nil, nil, ErrNotFound
	}
	p, err := s.listPage(ctx, models.PostFilter{CategorySlug: slug}, page, PageSize)
	if err != nil {
		return nil, nil, err
	}
	return c, p, nil
}

// TagPosts returns the tag and one page of its visible posts.
func (s *Service) TagPosts(ctx context.Context, slug string, page int) (*models.Tag, *models.PostPage, error) {
	t, err := s.tags.FindBySlug(ctx, slug)
	if err != nil {
		return nil, nil, storeErr("find tag", err)
	}
	if t == nil {
		return nil, nil, ErrNotFound
	}
	p, err := s.listPage(ctx, models.PostFilter{TagSlug: slug}, page, SmallPageSize)
	if err != nil {
		return nil, nil, err
	}
	return t, p, nil
}

// AuthorPosts returns the author and one page of their visible posts.
func (s *Service) AuthorPosts(ctx context.Context, username string, page int) (*models.Author, *models.PostPage, error) {
	u, err := s.authors.FindByUsername(ctx, username)
	if err != nil {
		return nil, nil, storeErr("find author", err)
	}
	if u == nil {
		return nil, nil, ErrNotFound
	}
	p, err := s.listPage(ctx, models.PostFilter{Username: username}, page, SmallPageSize)
	if err != nil {
		return nil, nil, err
	}
	a := models.Author{ID: u.ID, Username: u.Username, FirstName: u.FirstName, LastName: u.LastName}
	return &a, p, nil
}

// Bookmarks returns the visible posts v has bookmarked.
func (s *Service) Bookmarks(ctx context.Context, v *Viewer, page int) (*models.PostPage, error) {
	if v == nil {
		return nil, ErrUnauthenticated
	}
	return s.listPage(ctx, models.PostFilter{BookmarkedBy: &v.ID}, page, PageSize)
}

// MyPosts returns the active posts of any status that v may change.
func (s *Service) MyPosts(ctx context.Context, v *Viewer, page int) (*models.PostPage, error) {
	if v == nil {
		return nil, ErrUnauthenticated
	}
	posts, err := s.posts.ListGranted(ctx, v.ID, models.CapChangePost)
	if err != nil {
		return nil, storeErr("list granted posts", err)
	}
	return paginate(posts, page, PageSize)
}

// Index holds the landing page listings.
type Index struct {
	Popular []models.Post `json:"popular"`
	Recent  []models.Post `json:"recent"`
}

// Index returns the most viewed and the most recent visible posts.
func (s *Service) Index(ctx context.Context) (*Index, error) {
	popular, _, err := s.posts.List(ctx, models.PostFilter{OrderByViews: true, Limit: SideListSize})
	if err != nil {
		return nil, storeErr("list popular posts", err)
	}
	recent, _, err := s.posts.List(ctx, models.PostFilter{Limit: SideListSize})
	if err != nil {
		return nil, storeErr("list recent posts", err)
	}
	return &Index{Popular: popular, Recent: recent}, nil
}

// Related returns up to three other visible posts by the owner of post.
func (s *Service) Related(ctx context.Context, post *models.Post) ([]models.Post, error) {
	posts, err := s.posts.Related(ctx, post.OwnerID, post.ID, SideListSize)
	if err != nil {
		return nil, storeErr("related posts", err)
	}
	return posts, nil
}

// TopTags returns the tags with the most visible posts.
func (s *Service) TopTags(ctx context.Context) ([]models.Tag, error) {
	tags, err := s.tags.Top(ctx, TopTagsSize)
	if err != nil {
		return nil, storeErr("top tags", err)
	}
	return tags, nil
}

// TopAuthors returns the users with the most published posts.
func (s *Service) TopAuthors(ctx context.Context) ([]models.AuthorStat, error) {
	authors, err := s.authors.TopAuthors(ctx, SideListSize)
	if err != nil {
		return nil, storeErr("top authors", err)
	}
	if authors == nil {
		authors = []models.AuthorStat{}
	}
	return authors, nil
}

func (s *Service) Categories(ctx context.Context) ([]models.Category, error) {
	items, err := s.categories.List(ctx)
	if err != nil {
		return nil, storeErr("list categories", err)
	}
	return items, nil
}

func (s *Service) Tags(ctx context.Context) ([]models.Tag, error) {
	tags, err := s.tags.List(ctx)
	if err != nil {
		return nil, storeErr("list tags", err)
	}
	return tags, nil
}
