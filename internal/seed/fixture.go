package seed

import (
	"context"
	"fmt"
	"io"
	"os"

	"odinbook/internal/models"

	"gopkg.in/yaml.v3"
)

// Fixture is a hand-written set of users to add on top of the random ones.
//
//	users:
//	  - name: Carol
//	    username: carol
//	    password: secret1
//	    posts: ["First!"]
//	    friends: [dave]
type Fixture struct {
	Users []FixtureUser `yaml:"users"`
}

// FixtureUser describes one account. Friends name other fixture usernames.
type FixtureUser struct {
	Name          string   `yaml:"name"`
	Username      string   `yaml:"username"`
	Password      string   `yaml:"password"`
	ProfilePicURL string   `yaml:"profile_pic_url"`
	Posts         []string `yaml:"posts"`
	Friends       []string `yaml:"friends"`
}

// LoadFixture decodes a YAML fixture.
func LoadFixture(r io.Reader) (*Fixture, error) {
	var fx Fixture
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&fx); err != nil {
		return nil, fmt.Errorf("decode fixture: %w", err)
	}
	return &fx, nil
}

// LoadFixtureFile reads and decodes the fixture at path.
func LoadFixtureFile(path string) (*Fixture, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return LoadFixture(f)
}

// ApplyFixture creates the fixture's users and posts, then befriends the
// listed pairs through the normal request/accept flow.
func (s *Seeder) ApplyFixture(ctx context.Context, fx *Fixture) error {
	created := make(map[string]*models.User, len(fx.Users))
	for _, fu := range fx.Users {
		user, err := s.accounts.Signup(ctx, fu.Name, fu.Username, fu.Password)
		if err != nil {
			return fmt.Errorf("fixture user %q: %w", fu.Username, err)
		}
		if fu.ProfilePicURL != "" {
			if user, err = s.profiles.EditProfile(ctx, user.ID, user.Name, fu.ProfilePicURL); err != nil {
				return err
			}
		}
		for _, content := range fu.Posts {
			if _, err := s.content.CreatePost(ctx, user.ID, content, nil); err != nil {
				return fmt.Errorf("fixture post for %q: %w", fu.Username, err)
			}
		}
		created[fu.Username] = user
	}

	for _, fu := range fx.Users {
		from := created[fu.Username]
		for _, name := range fu.Friends {
			to, ok := created[name]
			if !ok {
				return fmt.Errorf("fixture user %q befriends unknown user %q", fu.Username, name)
			}
			if err := s.befriend(ctx, from.ID, to.ID); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *Seeder) befriend(ctx context.Context, fromID, toID uint) error {
	_, _, err := s.graph.SendFriendRequest(ctx, fromID, toID)
	switch {
	case models.IsCode(err, models.CodeAlreadyFriends), models.IsCode(err, models.CodeAlreadyRequested):
		// Listed on both sides; the first pass already handled it.
		return nil
	case err != nil:
		return err
	}
	_, _, err = s.graph.AcceptFriendRequest(ctx, toID, fromID)
	return err
}
