package mongostore

import (
	"github.com/mattiabonardi/endor-dao-go/pkg/dao"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const lookupScratch = "__populated"

// usesPipeline reports whether q needs an aggregation instead of a plain find.
func usesPipeline(q *dao.Query) bool {
	return q.Has(dao.ModDistinct) || q.Has(dao.ModPopulate)
}

func filterDoc(filter bson.M) bson.M {
	if filter == nil {
		return bson.M{}
	}
	return filter
}

func findOptions(q *dao.Query) *options.FindOptions {
	opts := options.Find()
	if fields := q.Fields(); fields != nil {
		opts.SetProjection(toBSON(fields))
	}
	if q.Has(dao.ModSort) {
		opts.SetSort(sortToBSON(q.Sort))
	}
	if q.Has(dao.ModSkip) {
		opts.SetSkip(q.Skip)
	}
	if q.Has(dao.ModLimit) {
		opts.SetLimit(q.Limit)
	}
	return opts
}

func findOneOptions(q *dao.Query) *options.FindOneOptions {
	opts := options.FindOne()
	if fields := q.Fields(); fields != nil {
		opts.SetProjection(toBSON(fields))
	}
	if q.Has(dao.ModSort) {
		opts.SetSort(sortToBSON(q.Sort))
	}
	return opts
}

// pipeline translates q into aggregation stages. Distinct and population run
// before the final projection so they can read every field.
func pipeline(q *dao.Query, filter bson.M) mongo.Pipeline {
	stages := mongo.Pipeline{{{Key: "$match", Value: filterDoc(filter)}}}

	for _, mod := range q.Applied() {
		switch mod {
		case dao.ModDistinct:
			path := "$" + q.Distinct
			stages = append(stages,
				bson.D{{Key: "$unwind", Value: path}},
				bson.D{{Key: "$group", Value: bson.M{"_id": path}}},
				bson.D{{Key: "$project", Value: bson.M{"_id": 0, q.Distinct: "$_id"}}},
			)
		case dao.ModSort:
			stages = append(stages, bson.D{{Key: "$sort", Value: sortToBSON(q.Sort)}})
		case dao.ModSkip:
			stages = append(stages, bson.D{{Key: "$skip", Value: q.Skip}})
		case dao.ModLimit:
			stages = append(stages, bson.D{{Key: "$limit", Value: q.Limit}})
		case dao.ModPopulate:
			if q.Has(dao.ModDistinct) {
				continue
			}
			if q.Kind == dao.KindFindOne {
				stages = append(stages, bson.D{{Key: "$limit", Value: 1}})
			}
			for _, rel := range q.Populate {
				stages = append(stages, lookupStages(rel, q.PopulateField)...)
			}
		}
	}

	if q.Kind == dao.KindFindOne && !q.Has(dao.ModPopulate) {
		stages = append(stages, bson.D{{Key: "$limit", Value: 1}})
	}
	if fields := q.Fields(); fields != nil && !q.Has(dao.ModDistinct) {
		stages = append(stages, bson.D{{Key: "$project", Value: toBSON(fields)}})
	}
	return stages
}

// lookupStages embeds the documents referenced by rel. Documents lacking the
// reference field are left as they are; an unresolved single reference
// becomes null.
func lookupStages(rel dao.Relation, sub dao.Fields) []bson.D {
	lookup := bson.M{
		"from":         rel.From,
		"localField":   rel.Path,
		"foreignField": rel.Foreign(),
		"as":           lookupScratch,
	}
	if len(sub) > 0 {
		lookup["pipeline"] = bson.A{bson.M{"$project": toBSON(sub)}}
	}

	var resolved any = "$" + lookupScratch
	if !rel.Many {
		resolved = bson.M{"$ifNull": bson.A{bson.M{"$arrayElemAt": bson.A{"$" + lookupScratch, 0}}, nil}}
	}

	return []bson.D{
		{{Key: "$lookup", Value: lookup}},
		{{Key: "$addFields", Value: bson.M{rel.Path: bson.M{"$cond": bson.A{
			bson.M{"$eq": bson.A{bson.M{"$type": "$" + rel.Path}, "missing"}},
			"$$REMOVE",
			resolved,
		}}}}},
		{{Key: "$project", Value: bson.M{lookupScratch: 0}}},
	}
}
