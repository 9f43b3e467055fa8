package services_test

import (
	"fmt"
	"testing"

	"feedcast-pipeline/internal/models"
	"feedcast-pipeline/internal/services"
)

func collectMemberIDs(topics []models.Topic) map[string]int {
	seen := make(map[string]int)
	for _, topic := range topics {
		for _, id := range topic.MemberEventIDs {
			seen[id]++
		}
	}
	return seen
}

func TestGroupEmptyInput(t *testing.T) {
	grouper := services.NewGrouperService(testDiscoveryConfig(), newTestLogger(t))
	if topics := grouper.Group(nil); len(topics) != 0 {
		t.Errorf("Expected no topics for empty input, got %d", len(topics))
	}
}

func TestGroupFormsEntityGroupForRepeatedEntity(t *testing.T) {
	grouper := services.NewGrouperService(testDiscoveryConfig(), newTestLogger(t))

	events := []models.Event{
		{ID: "evt_1", Headline: "Model update ships", Entities: []string{"OpenAI"}, Category: "products", ImportanceScore: 7},
		{ID: "evt_2", Headline: "Enterprise deal signed", Entities: []string{"OpenAI"}, Category: "products", ImportanceScore: 6},
		{ID: "evt_3", Headline: "New oversight law drafted", Entities: []string{"Parliament"}, Category: "policy", ImportanceScore: 5},
	}

	topics := grouper.Group(events)

	if len(topics) != 2 {
		t.Fatalf("Expected 2 topics, got %d", len(topics))
	}

	var entityTopic *models.Topic
	for i := range topics {
		if topics[i].TopicType == models.TopicTypeEntity {
			entityTopic = &topics[i]
		}
	}
	if entityTopic == nil {
		t.Fatal("Expected an entity topic")
	}
	if entityTopic.TopicName != "OpenAI Developments" {
		t.Errorf("Expected topic name 'OpenAI Developments', got %q", entityTopic.TopicName)
	}
	if len(entityTopic.MemberEventIDs) != 2 {
		t.Errorf("Expected 2 members in entity topic, got %d", len(entityTopic.MemberEventIDs))
	}
	if entityTopic.ImportanceScore != 7 {
		t.Errorf("Expected topic importance 7 (max member), got %v", entityTopic.ImportanceScore)
	}
}

func TestGroupSingleMentionEntityFallsToTheme(t *testing.T) {
	grouper := services.NewGrouperService(testDiscoveryConfig(), newTestLogger(t))

	events := []models.Event{
		{ID: "evt_1", Headline: "New oversight law drafted", Entities: []string{"Parliament"}, Category: "policy", ImportanceScore: 5},
	}

	topics := grouper.Group(events)
	if len(topics) != 1 {
		t.Fatalf("Expected 1 topic, got %d", len(topics))
	}
	if topics[0].TopicType != models.TopicTypeTheme {
		t.Errorf("Expected a theme topic, got %s", topics[0].TopicType)
	}
	if topics[0].TopicName != "AI Policy & Regulation" {
		t.Errorf("Expected theme label, got %q", topics[0].TopicName)
	}
}

func TestGroupPartitionIsComplete(t *testing.T) {
	grouper := services.NewGrouperService(testDiscoveryConfig(), newTestLogger(t))

	var events []models.Event
	categories := []string{"policy", "research", "products", "safety", "healthcare", "general"}
	for i := 0; i < 17; i++ {
		event := models.Event{
			ID:              fmt.Sprintf("evt_%02d", i),
			Headline:        fmt.Sprintf("Story %d", i),
			Category:        categories[i%len(categories)],
			ImportanceScore: float64(i%10) + 0.5,
		}
		switch {
		case i < 5:
			event.Entities = []string{"OpenAI"}
		case i < 9:
			event.Entities = []string{"DeepMind"}
		case i < 12:
			event.Entities = []string{"Anthropic"}
		}
		events = append(events, event)
	}

	topics := grouper.Group(events)

	if len(topics) > testDiscoveryConfig().MaxTopicGroups {
		t.Errorf("Expected at most %d topics, got %d", testDiscoveryConfig().MaxTopicGroups, len(topics))
	}

	seen := collectMemberIDs(topics)
	if len(seen) != len(events) {
		t.Fatalf("Expected all %d events assigned, got %d", len(events), len(seen))
	}
	for id, count := range seen {
		if count != 1 {
			t.Errorf("Event %s appears in %d topics, want exactly 1", id, count)
		}
	}
}

func TestGroupCapFoldsIntoCatchAll(t *testing.T) {
	grouper := services.NewGrouperService(testDiscoveryConfig(), newTestLogger(t))

	// Seven entity pairs exceed the cap of five.
	var events []models.Event
	for i := 0; i < 7; i++ {
		entity := fmt.Sprintf("Company%c", 'A'+i)
		for j := 0; j < 2; j++ {
			events = append(events, models.Event{
				ID:              fmt.Sprintf("evt_%d_%d", i, j),
				Headline:        fmt.Sprintf("%s story %d", entity, j),
				Entities:        []string{entity},
				Category:        "products",
				ImportanceScore: float64(i + 1),
			})
		}
	}

	topics := grouper.Group(events)

	if len(topics) != 5 {
		t.Fatalf("Expected exactly 5 topics after folding, got %d", len(topics))
	}

	var catchAll *models.Topic
	for i := range topics {
		if topics[i].TopicName == "Other Developments" {
			catchAll = &topics[i]
		}
	}
	if catchAll == nil {
		t.Fatal("Expected an 'Other Developments' catch-all topic")
	}
	if len(catchAll.MemberEventIDs) != 6 {
		t.Errorf("Expected 6 folded members (three weakest pairs), got %d", len(catchAll.MemberEventIDs))
	}

	seen := collectMemberIDs(topics)
	if len(seen) != len(events) {
		t.Errorf("Expected all %d events retained through folding, got %d", len(events), len(seen))
	}
}

func TestGroupTopicsSortedByImportance(t *testing.T) {
	grouper := services.NewGrouperService(testDiscoveryConfig(), newTestLogger(t))

	events := []models.Event{
		{ID: "evt_1", Headline: "Minor update", Category: "products", ImportanceScore: 2},
		{ID: "evt_2", Headline: "Major breakthrough", Category: "research", ImportanceScore: 9},
		{ID: "evt_3", Headline: "Policy shift", Category: "policy", ImportanceScore: 5},
	}

	topics := grouper.Group(events)
	for i := 1; i < len(topics); i++ {
		if topics[i].ImportanceScore > topics[i-1].ImportanceScore {
			t.Errorf("Topics not sorted by importance: %v before %v",
				topics[i-1].ImportanceScore, topics[i].ImportanceScore)
		}
	}
}

func TestGroupMembersSortedWithinTopic(t *testing.T) {
	grouper := services.NewGrouperService(testDiscoveryConfig(), newTestLogger(t))

	events := []models.Event{
		{ID: "evt_low", Headline: "Small story", Entities: []string{"OpenAI"}, Category: "products", ImportanceScore: 2},
		{ID: "evt_high", Headline: "Big story", Entities: []string{"OpenAI"}, Category: "products", ImportanceScore: 9},
	}

	topics := grouper.Group(events)
	if len(topics) != 1 {
		t.Fatalf("Expected 1 topic, got %d", len(topics))
	}
	if topics[0].MemberEventIDs[0] != "evt_high" {
		t.Errorf("Expected most important member first, got %v", topics[0].MemberEventIDs)
	}
}
