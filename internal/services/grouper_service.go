package services

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"feedcast-pipeline/internal/config"
	"feedcast-pipeline/internal/models"
	"feedcast-pipeline/internal/pkg/logger"
)

const catchAllTopicName = "Other Developments"

// GrouperService partitions the scored event set into consolidated topics:
// entity groups first (entities are the more specific signal), theme
// groups for the remainder, then a cap that folds minor groups into a
// catch-all. Every event lands in exactly one topic.
type GrouperService struct {
	config config.DiscoveryConfig
	logger *logger.Logger
}

type eventGroup struct {
	topicType models.TopicType
	name      string
	entity    string
	category  string
	members   []*models.Event
}

func NewGrouperService(cfg config.DiscoveryConfig, log *logger.Logger) *GrouperService {
	return &GrouperService{config: cfg, logger: log}
}

func (service *GrouperService) Group(events []models.Event) []models.Topic {
	startTime := time.Now()

	if len(events) == 0 {
		return nil
	}

	groups := service.entityPass(events)
	claimed := make(map[string]bool)
	for _, group := range groups {
		for _, event := range group.members {
			claimed[event.ID] = true
		}
	}

	groups = append(groups, service.themePass(events, claimed)...)
	groups = service.applyCap(groups)

	topics := make([]models.Topic, 0, len(groups))
	names := make(map[string]bool)
	for _, group := range groups {
		topic := buildTopic(group)
		for names[topic.TopicName] {
			topic.TopicName += " (continued)"
		}
		names[topic.TopicName] = true
		topics = append(topics, topic)
	}

	sort.Slice(topics, func(i, j int) bool {
		if topics[i].ImportanceScore != topics[j].ImportanceScore {
			return topics[i].ImportanceScore > topics[j].ImportanceScore
		}
		return topics[i].TopicName < topics[j].TopicName
	})

	entityGroups, themeGroups := 0, 0
	for _, topic := range topics {
		if topic.TopicType == models.TopicTypeEntity {
			entityGroups++
		} else {
			themeGroups++
		}
	}

	service.logger.LogService("grouper", "group", time.Since(startTime), map[string]interface{}{
		"events_in":     len(events),
		"topics_out":    len(topics),
		"entity_groups": entityGroups,
		"theme_groups":  themeGroups,
	}, nil)

	return topics
}

// entityPass forms a group per entity that appears in at least two events.
// An event qualifying for several entities goes to the entity whose
// mentions carry the higher total importance; ties break alphabetically.
func (service *GrouperService) entityPass(events []models.Event) []*eventGroup {
	mentions := make(map[string][]*models.Event)
	display := make(map[string]string)

	for i := range events {
		event := &events[i]
		for _, entity := range event.Entities {
			key := strings.ToLower(entity)
			mentions[key] = append(mentions[key], event)
			if _, ok := display[key]; !ok {
				display[key] = entity
			}
		}
	}

	scores := make(map[string]float64)
	for key, mentioned := range mentions {
		if len(mentioned) < 2 {
			continue
		}
		total := 0.0
		for _, event := range mentioned {
			total += event.ImportanceScore
		}
		scores[key] = total
	}

	assignments := make(map[string][]*models.Event)
	for i := range events {
		event := &events[i]
		var bestKey string
		bestScore := -1.0
		for _, entity := range event.Entities {
			key := strings.ToLower(entity)
			score, qualifies := scores[key]
			if !qualifies {
				continue
			}
			if score > bestScore || (score == bestScore && key < bestKey) {
				bestScore = score
				bestKey = key
			}
		}
		if bestKey != "" {
			assignments[bestKey] = append(assignments[bestKey], event)
		}
	}

	keys := make([]string, 0, len(assignments))
	for key := range assignments {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var groups []*eventGroup
	for _, key := range keys {
		groups = append(groups, &eventGroup{
			topicType: models.TopicTypeEntity,
			name:      fmt.Sprintf("%s Developments", display[key]),
			entity:    display[key],
			members:   assignments[key],
		})
	}
	return groups
}

// themePass buckets every unclaimed event by category. Single-member
// categories still form their own group; no event is ever dropped.
func (service *GrouperService) themePass(events []models.Event, claimed map[string]bool) []*eventGroup {
	byCategory := make(map[string][]*models.Event)
	for i := range events {
		event := &events[i]
		if claimed[event.ID] {
			continue
		}
		byCategory[event.Category] = append(byCategory[event.Category], event)
	}

	categories := make([]string, 0, len(byCategory))
	for category := range byCategory {
		categories = append(categories, category)
	}
	sort.Strings(categories)

	var groups []*eventGroup
	for _, category := range categories {
		groups = append(groups, &eventGroup{
			topicType: models.TopicTypeTheme,
			name:      CategoryLabel(category),
			category:  category,
			members:   byCategory[category],
		})
	}
	return groups
}

// applyCap folds the weakest groups, singletons first, into an
// "Other Developments" theme group until the target group count is met.
func (service *GrouperService) applyCap(groups []*eventGroup) []*eventGroup {
	if len(groups) <= service.config.MaxTopicGroups {
		return groups
	}

	catchAll := &eventGroup{
		topicType: models.TopicTypeTheme,
		name:      catchAllTopicName,
		category:  CategoryGeneral,
	}

	// The catch-all occupies a slot of its own, so fold victims until the
	// survivors plus the catch-all fit under the cap.
	for len(groups)+1 > service.config.MaxTopicGroups && len(groups) > 0 {
		victim := 0
		for i := 1; i < len(groups); i++ {
			if mergePriorityLess(groups[i], groups[victim]) {
				victim = i
			}
		}
		catchAll.members = append(catchAll.members, groups[victim].members...)
		groups = append(groups[:victim], groups[victim+1:]...)
	}

	return append(groups, catchAll)
}

// mergePriorityLess orders groups for the cap fold: singletons before
// larger groups, then lower peak importance, then name for determinism.
func mergePriorityLess(a, b *eventGroup) bool {
	aSingle, bSingle := len(a.members) == 1, len(b.members) == 1
	if aSingle != bSingle {
		return aSingle
	}
	aScore, bScore := groupImportance(a), groupImportance(b)
	if aScore != bScore {
		return aScore < bScore
	}
	return a.name < b.name
}

func groupImportance(group *eventGroup) float64 {
	max := 0.0
	for _, event := range group.members {
		if event.ImportanceScore > max {
			max = event.ImportanceScore
		}
	}
	return max
}

// buildTopic aggregates a group: members sorted by importance descending,
// key facts and source URLs as first-seen unions in that order, topic
// importance equal to its most important member.
func buildTopic(group *eventGroup) models.Topic {
	members := make([]*models.Event, len(group.members))
	copy(members, group.members)
	sort.Slice(members, func(i, j int) bool {
		if members[i].ImportanceScore != members[j].ImportanceScore {
			return members[i].ImportanceScore > members[j].ImportanceScore
		}
		return members[i].ID < members[j].ID
	})

	memberIDs := make([]string, 0, len(members))
	factSeen := make(map[string]struct{})
	urlSeen := make(map[string]struct{})
	var keyFacts, sourceURLs, headlines []string

	for _, event := range members {
		memberIDs = append(memberIDs, event.ID)
		headlines = append(headlines, event.Headline)
		for _, fact := range event.KeyFacts {
			if _, ok := factSeen[fact]; !ok {
				factSeen[fact] = struct{}{}
				keyFacts = append(keyFacts, fact)
			}
		}
		for _, url := range event.SourceURLs {
			if _, ok := urlSeen[url]; !ok {
				urlSeen[url] = struct{}{}
				sourceURLs = append(sourceURLs, url)
			}
		}
	}

	return models.Topic{
		TopicType:            group.topicType,
		TopicName:            group.name,
		MemberEventIDs:       memberIDs,
		Summary:              buildSummary(group, headlines),
		AggregatedKeyFacts:   keyFacts,
		AggregatedSourceURLs: sourceURLs,
		ImportanceScore:      groupImportance(group),
	}
}

// buildSummary is a deterministic placeholder; the narration collaborator
// replaces it with generated prose downstream.
func buildSummary(group *eventGroup, headlines []string) string {
	shown := headlines
	if len(shown) > 3 {
		shown = shown[:3]
	}
	if group.topicType == models.TopicTypeEntity {
		return fmt.Sprintf("%s featured in %d development(s): %s",
			group.entity, len(headlines), strings.Join(shown, "; "))
	}
	return fmt.Sprintf("%d development(s) related to %s: %s",
		len(headlines), strings.ToLower(group.name), strings.Join(shown, "; "))
}
