package main

import (
	"fmt"

	"github.com/AmrMurad1/lsmkv"
	"github.com/AmrMurad1/lsmkv/codec"
	"github.com/AmrMurad1/lsmkv/shared"
)

func main() {
	db, err := lsmkv.Open("./data", codec.Bytes{})
	if err != nil {
		fmt.Println(err)
		return
	}
	defer db.Close()

	fields := []struct {
		key   uint64
		value string
	}{
		{1, "john"}, {2, "25"}, {3, "paris"}, {4, "france"}, {5, "engineer"},
		{6, "tech-corp"}, {7, "75000"}, {8, "backend"}, {9, "senior"}, {10, "5years"},
	}
	for _, f := range fields {
		if err := db.Put(shared.Key(f.key), []byte(f.value)); err != nil {
			fmt.Println("put error:", err)
			return
		}
	}

	if err := db.Put(shared.Key(1), []byte("alice")); err != nil {
		fmt.Println("put error:", err)
		return
	}
	if err := db.Put(shared.Key(5), []byte("developer")); err != nil {
		fmt.Println("put error:", err)
		return
	}

	if v, ok, err := db.Get(shared.Key(1)); err != nil {
		fmt.Println("get error:", err)
	} else if ok {
		fmt.Println("key 1:", string(v))
	}

	if v, ok, err := db.Get(shared.Key(5)); err != nil {
		fmt.Println("get error:", err)
	} else if ok {
		fmt.Println("key 5:", string(v))
	}

	deleted, err := db.Delete(shared.Key(2))
	if err != nil {
		fmt.Println("delete error:", err)
		return
	}
	fmt.Println("key 2 deleted:", deleted)

	if _, ok, err := db.Get(shared.Key(2)); err != nil {
		fmt.Println("get error:", err)
	} else {
		fmt.Println("key 2 present:", ok)
	}

	fmt.Println("scan [1,10]:")
	err = db.Scan(shared.Key(1), shared.Key(10), func(k shared.Key, v []byte) error {
		fmt.Printf("  %d -> %s\n", uint64(k), string(v))
		return nil
	})
	if err != nil {
		fmt.Println("scan error:", err)
	}

	if err := db.Reset(); err != nil {
		fmt.Println("reset error:", err)
	}
}
