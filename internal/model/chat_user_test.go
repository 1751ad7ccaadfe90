package model

import "testing"

func TestUserInfoRoundTrip(t *testing.T) {
	user := &ChatUser{UserID: "u1", TenantCode: "t1"}

	info := UserInfoData{
		ExternalUserID: "ext-1",
		Username:       "abcd1234",
		Name:           "Alice",
		Email:          "a@x.com",
	}
	if err := user.SetUserInfo(info); err != nil {
		t.Fatalf("SetUserInfo failed: %v", err)
	}

	// The external ID must be materialized alongside the blob
	if user.ExternalUserID != "ext-1" {
		t.Errorf("ExternalUserID = %q, want ext-1", user.ExternalUserID)
	}

	got, err := user.GetUserInfo()
	if err != nil {
		t.Fatalf("GetUserInfo failed: %v", err)
	}
	if got != info {
		t.Errorf("round trip mismatch: %+v != %+v", got, info)
	}
}

func TestGetUserInfoEmpty(t *testing.T) {
	user := &ChatUser{}
	info, err := user.GetUserInfo()
	if err != nil {
		t.Fatalf("GetUserInfo on empty blob failed: %v", err)
	}
	if info.ExternalUserID != "" {
		t.Errorf("empty blob should yield zero value, got %+v", info)
	}
}
