package generator

import (
	"math/rand"
	"strings"

	"github.com/heartpost/greeting-gateway/internal/model"
)

// Each pool is keyed by relationship category. Templates interpolate
// {recipient_name}, {sender_name} and {personalized_content}.
var templatePools = map[model.Relationship][]string{
	model.RelationshipSpouse: {
		"My dearest {recipient_name}, every day with you is a gift. {personalized_content} Forever yours, {sender_name}.",
		"{recipient_name}, my love, after all this time you still make my heart race. {personalized_content} With all my love, {sender_name}.",
		"To my wonderful {recipient_name}: home is wherever you are. {personalized_content} Always, {sender_name}.",
	},
	model.RelationshipGirlfriend: {
		"{recipient_name}, you light up every room you walk into. {personalized_content} Yours, {sender_name}.",
		"Hey {recipient_name}, just wanted you to know how lucky I feel to have you. {personalized_content} Love, {sender_name}.",
		"{recipient_name}, being with you is my favorite place to be. {personalized_content} xoxo {sender_name}.",
	},
	model.RelationshipBoyfriend: {
		"{recipient_name}, you make everything better just by being you. {personalized_content} Yours, {sender_name}.",
		"Hey {recipient_name}, I smile every time I think of you. {personalized_content} Love, {sender_name}.",
		"{recipient_name}, thank you for being my favorite person. {personalized_content} Always, {sender_name}.",
	},
	model.RelationshipCrush: {
		"Hi {recipient_name}, someone thinks you're pretty amazing. {personalized_content} Guess who? It's {sender_name}.",
		"{recipient_name}, I've been meaning to tell you something for a while. {personalized_content} Yours truly, {sender_name}.",
		"Dear {recipient_name}, you probably don't know this, but you make my day brighter. {personalized_content} - {sender_name}.",
	},
	model.RelationshipFriend: {
		"Hey {recipient_name}! Just a note to say you're a fantastic friend. {personalized_content} Cheers, {sender_name}.",
		"{recipient_name}, friends like you are hard to find. {personalized_content} Your friend, {sender_name}.",
		"To {recipient_name}: thanks for always being there. {personalized_content} - {sender_name}.",
	},
	model.RelationshipColleague: {
		"Hi {recipient_name}, working with you is a genuine pleasure. {personalized_content} Best, {sender_name}.",
		"{recipient_name}, just wanted to say thanks for being a great colleague. {personalized_content} Regards, {sender_name}.",
	},
	model.RelationshipBoss: {
		"Dear {recipient_name}, thank you for your guidance and support. {personalized_content} Respectfully, {sender_name}.",
		"{recipient_name}, it's a privilege to work on your team. {personalized_content} Best regards, {sender_name}.",
	},
}

// pickTemplate selects a random template for the relationship, falling back
// to the friend pool for unrecognized categories.
func pickTemplate(rel model.Relationship, rnd *rand.Rand) string {
	pool, ok := templatePools[rel]
	if !ok || len(pool) == 0 {
		pool = templatePools[model.RelationshipFriend]
	}
	return pool[rnd.Intn(len(pool))]
}

func renderTemplate(tpl, sender, recipient, personalized string) string {
	r := strings.NewReplacer(
		"{recipient_name}", recipient,
		"{sender_name}", sender,
		"{personalized_content}", personalized,
	)
	return r.Replace(tpl)
}
