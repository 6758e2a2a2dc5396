// Package catalog declares the editor schema of every archive in the room.
package catalog

import (
	"sort"
	"strconv"

	"digitalroom/internal/editor"
	"digitalroom/pkg/domain"
)

const imageBucket = "images"

func sortOrder() editor.Field {
	return editor.Field{Name: domain.FieldSortOrder, Label: "Sort order", Kind: editor.KindInt}
}

func tags(name, label string) editor.Field {
	return editor.Field{Name: name, Label: label, Kind: editor.KindTags}
}

func ratingRule(field string, maxRating float64) func(map[string]any) error {
	return func(values map[string]any) error {
		r, ok := domain.AsFloat(values[field])
		if ok && (r < 0 || r > maxRating) {
			return &editor.ValidationError{Field: field, Reason: "must be between 0 and " + strconv.FormatFloat(maxRating, 'f', -1, 64)}
		}
		return nil
	}
}

var schemas = []editor.Schema{
	{
		Entity: "anime", Label: "Anime", Table: "anime", TitleField: "title", Bucket: imageBucket,
		Fields: []editor.Field{
			{Name: "title", Label: "Title", Kind: editor.KindString, Required: true},
			{Name: "original_title", Label: "Original title", Kind: editor.KindString},
			{Name: "status", Label: "Status", Kind: editor.KindEnum, Options: []string{"watching", "completed", "plan_to_watch", "dropped"}, Default: "plan_to_watch"},
			{Name: "rating", Label: "Rating", Kind: editor.KindFloat},
			{Name: "episodes", Label: "Episodes", Kind: editor.KindInt},
			{Name: "year", Label: "Year", Kind: editor.KindInt},
			tags("genres", "Genres"),
			{Name: "cover", Label: "Cover", Kind: editor.KindImage},
			{Name: "review", Label: "Review", Kind: editor.KindText},
			sortOrder(),
		},
		Validate: ratingRule("rating", 10),
	},
	{
		Entity: "movies", Label: "Movie", Table: "movies", TitleField: "title", Bucket: imageBucket,
		Fields: []editor.Field{
			{Name: "title", Label: "Title", Kind: editor.KindString, Required: true},
			{Name: "director", Label: "Director", Kind: editor.KindString},
			{Name: "year", Label: "Year", Kind: editor.KindInt},
			{Name: "status", Label: "Status", Kind: editor.KindEnum, Options: []string{"watched", "want_to_watch"}, Default: "watched"},
			{Name: "rating", Label: "Rating", Kind: editor.KindFloat},
			tags("genres", "Genres"),
			{Name: "poster", Label: "Poster", Kind: editor.KindImage},
			{Name: "review", Label: "Review", Kind: editor.KindText},
			sortOrder(),
		},
		Validate: ratingRule("rating", 10),
	},
	{
		Entity: "books", Label: "Book", Table: "books", TitleField: "title", Bucket: imageBucket,
		Fields: []editor.Field{
			{Name: "title", Label: "Title", Kind: editor.KindString, Required: true},
			{Name: "author", Label: "Author", Kind: editor.KindString},
			{Name: "status", Label: "Status", Kind: editor.KindEnum, Options: []string{"reading", "finished", "want_to_read"}, Default: "want_to_read"},
			{Name: "rating", Label: "Rating", Kind: editor.KindFloat},
			tags("tags", "Tags"),
			{Name: "cover", Label: "Cover", Kind: editor.KindImage},
			{Name: "review", Label: "Review", Kind: editor.KindText},
			{Name: "quotes", Label: "Quotes", Kind: editor.KindList, SubFields: []editor.Field{
				{Name: "text", Label: "Quote", Kind: editor.KindText},
				{Name: "chapter", Label: "Chapter", Kind: editor.KindString},
			}},
			sortOrder(),
		},
		Validate: ratingRule("rating", 10),
	},
	{
		Entity: "habits", Label: "Habit", Table: "habits", TitleField: "name",
		Fields: []editor.Field{
			{Name: "name", Label: "Name", Kind: editor.KindString, Required: true},
			{Name: "description", Label: "Description", Kind: editor.KindText},
			{Name: "icon", Label: "Icon", Kind: editor.KindString, Default: "check"},
			{Name: "frequency", Label: "Frequency", Kind: editor.KindEnum, Options: []string{"daily", "weekly", "monthly"}, Default: "daily"},
			{Name: "streak", Label: "Streak", Kind: editor.KindInt},
			{Name: "active", Label: "Active", Kind: editor.KindBool, Default: true},
			sortOrder(),
		},
	},
	{
		Entity: "hobbies", Label: "Hobby", Table: "hobbies", TitleField: "name",
		Fields: []editor.Field{
			{Name: "name", Label: "Name", Kind: editor.KindString, Required: true},
			{Name: "description", Label: "Description", Kind: editor.KindText},
			{Name: "icon", Label: "Icon", Kind: editor.KindString, Default: "star"},
			{Name: "since", Label: "Since", Kind: editor.KindString},
			tags("tags", "Tags"),
			sortOrder(),
		},
	},
	{
		Entity: "quotes", Label: "Quote", Table: "quotes", TitleField: "text",
		Fields: []editor.Field{
			{Name: "text", Label: "Quote", Kind: editor.KindText, Required: true},
			{Name: "author", Label: "Author", Kind: editor.KindString},
			{Name: "source", Label: "Source", Kind: editor.KindString},
			tags("tags", "Tags"),
			sortOrder(),
		},
	},
	{
		Entity: "timeline", Label: "Timeline event", Table: "timeline", TitleField: "title", Bucket: imageBucket,
		Fields: []editor.Field{
			{Name: "title", Label: "Title", Kind: editor.KindString, Required: true},
			{Name: "date", Label: "Date", Kind: editor.KindString, Required: true},
			{Name: "category", Label: "Category", Kind: editor.KindEnum, Options: []string{"life", "work", "study", "travel"}, Default: "life"},
			{Name: "icon", Label: "Icon", Kind: editor.KindString, Default: "calendar"},
			{Name: "description", Label: "Description", Kind: editor.KindText},
			{Name: "images", Label: "Images", Kind: editor.KindImages},
			sortOrder(),
		},
		Order: []domain.Order{{Field: "date", Desc: true}, {Field: domain.FieldSortOrder}},
	},
	{
		Entity: "tools", Label: "Tool", Table: "tools", TitleField: "name",
		Fields: []editor.Field{
			{Name: "name", Label: "Name", Kind: editor.KindString, Required: true},
			{Name: "description", Label: "Description", Kind: editor.KindText},
			{Name: "url", Label: "URL", Kind: editor.KindString},
			{Name: "category", Label: "Category", Kind: editor.KindEnum, Options: []string{"dev", "design", "productivity", "hardware"}, Default: "dev"},
			{Name: "icon", Label: "Icon", Kind: editor.KindString, Default: "wrench"},
			tags("tags", "Tags"),
			sortOrder(),
		},
	},
	{
		Entity: "mind_maps", Label: "Mind map", Table: "mind_maps", TitleField: "title", IDStrategy: domain.IDUUID,
		Fields: []editor.Field{
			{Name: "title", Label: "Title", Kind: editor.KindString, Required: true},
			{Name: "description", Label: "Description", Kind: editor.KindText},
			{Name: "content", Label: "Content", Kind: editor.KindText},
			tags("tags", "Tags"),
			sortOrder(),
		},
	},
	{
		Entity: "prompt_categories", Label: "Prompt category", Table: "prompt_categories", TitleField: "name",
		Fields: []editor.Field{
			{Name: "name", Label: "Name", Kind: editor.KindString, Required: true},
			{Name: "description", Label: "Description", Kind: editor.KindText},
			{Name: "icon", Label: "Icon", Kind: editor.KindString, Default: "folder"},
			sortOrder(),
		},
	},
	{
		Entity: "prompts", Label: "Prompt", Table: "prompts", TitleField: "title",
		Fields: []editor.Field{
			{Name: "title", Label: "Title", Kind: editor.KindString, Required: true},
			{Name: "category_id", Label: "Category", Kind: editor.KindString, Required: true},
			{Name: "content", Label: "Prompt", Kind: editor.KindText, Required: true},
			{Name: "model", Label: "Model", Kind: editor.KindString},
			tags("tags", "Tags"),
			sortOrder(),
		},
	},
	{
		Entity: "garden", Label: "Garden note", Table: "garden", TitleField: "title", IDStrategy: domain.IDUUID,
		Fields: []editor.Field{
			{Name: "title", Label: "Title", Kind: editor.KindString, Required: true},
			{Name: "stage", Label: "Stage", Kind: editor.KindEnum, Options: []string{"seedling", "budding", "evergreen"}, Default: "seedling"},
			{Name: "content", Label: "Content", Kind: editor.KindText},
			tags("tags", "Tags"),
		},
		Order: []domain.Order{{Field: domain.FieldCreatedAt, Desc: true}},
	},
}

// Lookup returns the schema registered under name.
func Lookup(name string) (editor.Schema, bool) {
	for _, s := range schemas {
		if s.Entity == name {
			return s, true
		}
	}
	return editor.Schema{}, false
}

// All returns every schema in declaration order.
func All() []editor.Schema {
	return append([]editor.Schema(nil), schemas...)
}

// Names returns entity names sorted alphabetically.
func Names() []string {
	out := make([]string, 0, len(schemas))
	for _, s := range schemas {
		out = append(out, s.Entity)
	}
	sort.Strings(out)
	return out
}

// IDStrategies maps table names to their id strategy for the row stores.
// Tables absent from the map use serial ids.
func IDStrategies() map[string]domain.IDStrategy {
	out := make(map[string]domain.IDStrategy)
	for _, s := range schemas {
		if s.IDStrategy != "" {
			out[s.Table] = s.IDStrategy
		}
	}
	return out
}

// ForCategory scopes the prompts schema to one prompt category.
func ForCategory(categoryID string) editor.Schema {
	s, _ := Lookup("prompts")
	s.Filters = []domain.Filter{{Field: "category_id", Value: categoryID}}
	fields := make([]editor.Field, len(s.Fields))
	copy(fields, s.Fields)
	for i := range fields {
		if fields[i].Name == "category_id" {
			fields[i].Default = categoryID
		}
	}
	s.Fields = fields
	return s
}
