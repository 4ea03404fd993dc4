package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Sitemap 은 테넌트별로 렌더링된 sitemap.xml 본문이다.
// Collection: sitemaps
type Sitemap struct {
	OwnerID   primitive.ObjectID `bson:"_id" json:"owner_id"`
	Hostname  string             `bson:"hostname" json:"hostname"`
	XML       string             `bson:"xml" json:"-"`
	URLCount  int                `bson:"url_count" json:"url_count"`
	UpdatedAt time.Time          `bson:"updated_at" json:"updated_at"`
}
