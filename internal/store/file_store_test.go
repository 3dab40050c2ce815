package store_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"popclient/internal/crypto"
	"popclient/internal/domain"
	"popclient/internal/domain/types"
	"popclient/internal/message"
	"popclient/internal/poperr"
	"popclient/internal/store"
)

func backends(t *testing.T) map[string]domain.KV {
	return map[string]domain.KV{
		"file":   store.NewFileKV(t.TempDir()),
		"memory": store.NewMemoryKV(),
	}
}

func TestKV_GetSetUpdate(t *testing.T) {
	for name, kv := range backends(t) {
		t.Run(name, func(t *testing.T) {
			var n int
			ok, err := kv.Get("counter", &n)
			require.NoError(t, err)
			require.False(t, ok)

			require.NoError(t, kv.Set("counter", 1))
			require.NoError(t, kv.Update("counter", &n, func(exists bool) (bool, error) {
				require.True(t, exists)
				n++
				return true, nil
			}))
			require.NoError(t, kv.Update("counter", &n, func(bool) (bool, error) {
				n = 100
				return false, nil
			}))

			var got int
			ok, err = kv.Get("counter", &got)
			require.NoError(t, err)
			require.True(t, ok)
			require.Equal(t, 2, got)
		})
	}
}

func TestFileKV_Persists(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, store.NewFileKV(dir).Set("lao/x/witnesses", []string{"a"}))

	var out []string
	ok, err := store.NewFileKV(dir).Get("lao/x/witnesses", &out)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []string{"a"}, out)
}

func TestKeystore_SaveLoad(t *testing.T) {
	ks := store.NewKeystore(store.NewFileKV(t.TempDir()), store.WithScryptCost(store.MinScryptCost))
	kp, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	pub := kp.Public

	require.NoError(t, ks.SaveIdentity("pass", kp))
	got, err := ks.LoadIdentity("pass")
	require.NoError(t, err)
	require.Equal(t, pub, got.Public)
	require.Equal(t, pub, got.Private.Public())
}

func TestKeystore_WrongPassphrase(t *testing.T) {
	ks := store.NewKeystore(store.NewMemoryKV(), store.WithScryptCost(store.MinScryptCost))
	kp, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	require.NoError(t, ks.SaveIdentity("correct", kp))

	_, err = ks.LoadIdentity("wrong")
	require.ErrorIs(t, err, store.ErrWrongPassphrase)
	require.ErrorIs(t, err, poperr.ErrAuthentication)
}

func TestKeystore_MissingIdentity(t *testing.T) {
	ks := store.NewKeystore(store.NewMemoryKV(), store.WithScryptCost(store.MinScryptCost))
	_, err := ks.LoadIdentity("pass")
	require.ErrorIs(t, err, poperr.ErrConfiguration)
}

func TestKeystore_Mnemonic(t *testing.T) {
	ks := store.NewKeystore(store.NewMemoryKV(), store.WithScryptCost(store.MinScryptCost))
	_, ok, err := ks.LoadMnemonic("pass")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, ks.SaveMnemonic("pass", "abandon ability able"))
	m, ok, err := ks.LoadMnemonic("pass")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "abandon ability able", m)

	_, _, err = ks.LoadMnemonic("nope")
	require.ErrorIs(t, err, poperr.ErrAuthentication)

	require.NoError(t, ks.WipeMnemonic())
	_, ok, err = ks.LoadMnemonic("pass")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestMessageLog_AppendOnceAndNotify(t *testing.T) {
	log := store.NewMessageLog(store.NewMemoryKV())
	kp, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	msg, err := message.Build(message.NewCreateLao("lao", kp.Public, 1700000000, nil), kp)
	require.NoError(t, err)
	ch := types.RootChannel

	var seen []domain.LogEntry
	cancel := log.OnAppend(func(e domain.LogEntry) { seen = append(seen, e) })

	added, err := log.Append(ch, msg)
	require.NoError(t, err)
	require.True(t, added)
	added, err = log.Append(ch, msg)
	require.NoError(t, err)
	require.False(t, added)

	// Same id on another channel is a separate entry.
	added, err = log.Append(ch.Child("other"), msg)
	require.NoError(t, err)
	require.True(t, added)

	require.Len(t, seen, 2)
	require.Equal(t, ch, seen[0].Channel)

	cancel()
	msgs, err := log.Messages(ch)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	require.True(t, msg.Equal(msgs[0]))
}

func TestMessageLog_ChannelsParentsFirst(t *testing.T) {
	log := store.NewMessageLog(store.NewMemoryKV())
	kp, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	msg, err := message.Build(message.NewCreateLao("lao", kp.Public, 1700000000, nil), kp)
	require.NoError(t, err)

	lao := types.LaoChannel(crypto.HashStrings("lao"))
	social := types.UserSocialChannel(crypto.HashStrings("lao"), kp.Public)
	election := lao.Child(crypto.HashStrings("election").String())
	other := types.LaoChannel(crypto.HashStrings("other"))
	for _, ch := range []types.Channel{social, other, election, lao, types.RootChannel, social} {
		_, err := log.Append(ch, msg)
		require.NoError(t, err)
	}

	chs, err := log.Channels(lao)
	require.NoError(t, err)
	require.Equal(t, []types.Channel{lao, election, social}, chs)

	none, err := log.Channels(types.LaoChannel(crypto.HashStrings("missing")))
	require.NoError(t, err)
	require.Empty(t, none)
}

func TestKV_ErrorKinds(t *testing.T) {
	dir := t.TempDir()
	plain := filepath.Join(dir, "plain")
	require.NoError(t, os.WriteFile(plain, []byte("x"), 0o600))

	// The data directory is a regular file.
	err := store.NewFileKV(plain).Set("k", 1)
	require.ErrorIs(t, err, poperr.ErrConfiguration)
	require.Equal(t, poperr.ErrConfiguration, poperr.KindOf(err))

	kv := store.NewFileKV(dir)
	require.NoError(t, kv.Set("k", 1))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "k.json"), []byte("{broken"), 0o600))
	var n int
	_, err = kv.Get("k", &n)
	require.ErrorIs(t, err, poperr.ErrDecode)

	for name, kv := range backends(t) {
		t.Run(name, func(t *testing.T) {
			err := kv.Set("fn", func() {})
			require.ErrorIs(t, err, poperr.ErrSchema)
			require.NoError(t, kv.Set("s", "text"))
			var n int
			_, err = kv.Get("s", &n)
			require.ErrorIs(t, err, poperr.ErrDecode)
		})
	}
}

func TestAliasStore_Flattens(t *testing.T) {
	aliases := store.NewAliasStore(store.NewMemoryKV())
	rc := crypto.HashStrings("roll call")
	open := crypto.HashStrings("open")
	closing := crypto.HashStrings("close")

	_, ok, err := aliases.Resolve(open)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, aliases.SetAlias(open, rc))
	require.NoError(t, aliases.SetAlias(closing, open))

	got, ok, err := aliases.Resolve(closing)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, rc, got)
}

func TestLaoStore(t *testing.T) {
	laos := store.NewLaoStore(store.NewFileKV(t.TempDir()))
	lao := crypto.HashStrings("lao")
	kp, err := crypto.GenerateKeyPair()
	require.NoError(t, err)

	w, err := laos.Witnesses(lao)
	require.NoError(t, err)
	require.Empty(t, w)

	require.NoError(t, laos.SaveWitnesses(lao, []crypto.PublicKey{kp.Public}))
	w, err = laos.Witnesses(lao)
	require.NoError(t, err)
	require.Equal(t, []crypto.PublicKey{kp.Public}, w)

	rc := crypto.HashStrings("rc")
	require.NoError(t, laos.SaveAttendance(types.Attendance{LaoID: lao, RollCallID: rc}))
	require.NoError(t, laos.SaveAttendance(types.Attendance{LaoID: lao, RollCallID: rc, Attendees: []crypto.PublicKey{kp.Public}}))
	att, err := laos.Attendance(lao)
	require.NoError(t, err)
	require.Len(t, att, 1)
	require.True(t, att[0].Contains(kp.Public))
}
