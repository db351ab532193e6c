package content

import "github.com/megahub-io/megahub/internal/scope"

const (
	KindWebsite    = "website"
	KindPage       = "page"
	KindArticle    = "article"
	KindCollection = "collection"
	// KindCollectionContent scopes collections through their member
	// articles. Used as a consistency check against the direct brand
	// column, not as the canonical path.
	KindCollectionContent = "collection_content"
)

// RegisterDescriptors wires the content tables into the scoper. Runs once
// at startup.
func RegisterDescriptors(reg *scope.Registry) {
	reg.MustRegister(scope.Descriptor{
		Kind:             KindWebsite,
		Table:            "websites",
		BrandColumn:      "brand_id",
		SoftDeleteColumn: "is_deleted",
	})
	reg.MustRegister(scope.Descriptor{
		Kind:             KindPage,
		Table:            "pages",
		BrandColumn:      "brand_id",
		SoftDeleteColumn: "is_deleted",
		Hops: []scope.Hop{
			{Table: "websites", LocalColumn: "website_id", SoftDeleteColumn: "is_deleted"},
		},
	})
	reg.MustRegister(scope.Descriptor{
		Kind:             KindArticle,
		Table:            "articles",
		BrandColumn:      "brand_id",
		SoftDeleteColumn: "is_deleted",
		Hops: []scope.Hop{
			{Table: "pages", LocalColumn: "page_id", SoftDeleteColumn: "is_deleted"},
			{Table: "websites", LocalColumn: "website_id", SoftDeleteColumn: "is_deleted"},
		},
	})
	reg.MustRegister(scope.Descriptor{
		Kind:        KindCollection,
		Table:       "collections",
		BrandColumn: "brand_id",
	})
	reg.MustRegister(scope.Descriptor{
		Kind:  KindCollectionContent,
		Table: "collections",
		Edge: &scope.EdgeHop{
			JoinTable:    "collection_articles",
			LocalColumn:  "collection_id",
			RemoteColumn: "article_id",
			TargetKind:   KindArticle,
		},
	})
}
