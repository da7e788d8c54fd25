package services

import "github.com/lborres/bantay/core"

var seedContent = []core.ContentItem{
	{
		ID:         "seed-comic-1",
		Type:       core.ContentComic,
		Title:      "Night Shift at Pier Nine",
		Excerpt:    "A dock worker finds a crate that hums after midnight.",
		CoverImage: "https://picsum.photos/seed/pier-nine/800/1200",
		Date:       "2024-05-14",
		Author: core.Author{
			Name:   "Ines Marchal",
			Avatar: DefaultAvatar("Ines Marchal"),
		},
		Tags:             []string{"mystery", "harbor"},
		Likes:            87,
		OriginalLanguage: core.LanguageFR,
		Pages: []string{
			"https://picsum.photos/seed/pier-nine-1/800/1200",
			"https://picsum.photos/seed/pier-nine-2/800/1200",
			"https://picsum.photos/seed/pier-nine-3/800/1200",
		},
	},
	{
		ID:         "seed-article-1",
		Type:       core.ContentArticle,
		Title:      "Keeping a Newsroom Running on Bad Wi-Fi",
		Excerpt:    "Small habits that keep a publication online when the network is not.",
		CoverImage: "https://picsum.photos/seed/bad-wifi/1200/630",
		Date:       "2024-05-12",
		Author: core.Author{
			Name:   "Tomas Reyes",
			Avatar: DefaultAvatar("Tomas Reyes"),
		},
		Tags:             []string{"operations", "offline"},
		Likes:            42,
		OriginalLanguage: core.LanguageFR,
		Content:          "Drafts are saved locally first. Uploads retry in the background. Readers always see the last good edition.",
	},
	{
		ID:         "seed-article-2",
		Type:       core.ContentArticle,
		Title:      "A Field Guide to Community Zines",
		Excerpt:    "Where they come from and why people still staple them by hand.",
		CoverImage: "https://picsum.photos/seed/zines/1200/630",
		Date:       "2024-05-10",
		Author: core.Author{
			Name:   "Ada Okafor",
			Avatar: DefaultAvatar("Ada Okafor"),
		},
		Tags:             []string{"culture", "print"},
		Likes:            19,
		OriginalLanguage: core.LanguageFR,
		Content:          "Every zine starts as a single folded sheet and a reason to make it.",
	},
}

// SeedContent returns a fresh copy of the built-in dataset, newest first.
func SeedContent() []core.ContentItem {
	items := core.CloneContent(seedContent)
	core.SortByDateDesc(items)
	return items
}
