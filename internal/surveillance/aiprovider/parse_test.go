package aiprovider

import "testing"

func TestParseResponseStrictJSON(t *testing.T) {
	out := ParseResponse(`{"description": "A person walking left to right.", "confidence": 82}`)
	if out.Description != "A person walking left to right." {
		t.Fatalf("description = %q", out.Description)
	}
	if out.Confidence == nil || *out.Confidence != 82 {
		t.Fatalf("confidence = %v", out.Confidence)
	}
}

func TestParseResponseTruncatedSalvage(t *testing.T) {
	out := ParseResponse(`Sure, here you go: {"description": "A car pulls into the driveway and parks near the garage`)
	if out.Description != "A car pulls into the driveway and parks near the garage" {
		t.Fatalf("description = %q", out.Description)
	}
}

func TestParseResponseConfidencePhraseFallback(t *testing.T) {
	out := ParseResponse("A dog runs across the yard. I am 75% confident in this description.")
	if out.Confidence == nil || *out.Confidence != 75 {
		t.Fatalf("confidence = %v", out.Confidence)
	}
}

func TestParseResponseNoStructureAtAll(t *testing.T) {
	out := ParseResponse("A delivery person leaves a package at the door.")
	if out.Description != "A delivery person leaves a package at the door." {
		t.Fatalf("description = %q", out.Description)
	}
	if out.Confidence != nil {
		t.Fatalf("expected nil confidence, got %v", *out.Confidence)
	}
}

func TestInferObjectsKeywordMatch(t *testing.T) {
	tags := InferObjects("A white SUV pulls into the driveway while a dog barks nearby.")
	if len(tags) != 2 || tags[0] != "vehicle" || tags[1] != "animal" {
		t.Fatalf("tags = %v", tags)
	}
}

func TestInferObjectsDefaultsToUnknown(t *testing.T) {
	tags := InferObjects("Leaves rustle in the wind.")
	if len(tags) != 1 || tags[0] != "unknown" {
		t.Fatalf("tags = %v", tags)
	}
}
