package service

import (
	"context"

	"github.com/thoas/go-funk"

	"github.com/patric-chuzhbe/bloglist/internal/models"
)

// Stats aggregates the whole blog list. Ties go to the later blog for the favorite
// and to the author seen first for the per-author leaders.
func (s *Service) Stats(ctx context.Context) (*models.BlogStats, error) {
	blogs, err := s.db.GetBlogs(ctx, models.BlogFilter{})
	if err != nil {
		return nil, err
	}

	return computeStats(blogs), nil
}

func computeStats(blogs []*models.Blog) *models.BlogStats {
	stats := &models.BlogStats{Blogs: len(blogs)}
	if len(blogs) == 0 {
		return stats
	}

	likes := funk.Map(blogs, func(blog *models.Blog) int { return blog.Likes }).([]int)
	stats.TotalLikes = funk.SumInt(likes)

	favorite := blogs[0]
	for _, blog := range blogs[1:] {
		if blog.Likes >= favorite.Likes {
			favorite = blog
		}
	}
	stats.FavoriteBlog = &models.FavoriteBlog{
		Title:  favorite.Title,
		Author: favorite.Author,
		Likes:  favorite.Likes,
	}

	authors := []string{}
	blogsByAuthor := map[string]int{}
	likesByAuthor := map[string]int{}
	for _, blog := range blogs {
		if !funk.ContainsString(authors, blog.Author) {
			authors = append(authors, blog.Author)
		}
		blogsByAuthor[blog.Author]++
		likesByAuthor[blog.Author] += blog.Likes
	}

	mostBlogs := authors[0]
	mostLikes := authors[0]
	for _, author := range authors[1:] {
		if blogsByAuthor[author] > blogsByAuthor[mostBlogs] {
			mostBlogs = author
		}
		if likesByAuthor[author] > likesByAuthor[mostLikes] {
			mostLikes = author
		}
	}
	stats.MostBlogs = &models.AuthorBlogs{Author: mostBlogs, Blogs: blogsByAuthor[mostBlogs]}
	stats.MostLikes = &models.AuthorLikes{Author: mostLikes, Likes: likesByAuthor[mostLikes]}

	return stats
}
