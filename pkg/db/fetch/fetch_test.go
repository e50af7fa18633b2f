package fetch_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"

	"github.com/SoftwareDesignLab/nvip-crawler-sub002/pkg/db/fetch"
)

func TestSelectLayer(t *testing.T) {
	db := ocispec.Descriptor{MediaType: fetch.LayerMediaType, Digest: "sha256:0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef", Size: 42}
	tests := []struct {
		name     string
		manifest ocispec.Manifest
		want     ocispec.Descriptor
		wantErr  bool
	}{
		{
			name: "db layer",
			manifest: ocispec.Manifest{Layers: []ocispec.Descriptor{
				{MediaType: "application/vnd.oci.image.layer.v1.tar"},
				db,
			}},
			want: db,
		},
		{
			name: "no db layer",
			manifest: ocispec.Manifest{Layers: []ocispec.Descriptor{
				{MediaType: "application/vnd.oci.image.layer.v1.tar"},
			}},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := fetch.SelectLayer(tt.manifest)
			if (err != nil) != tt.wantErr {
				t.Errorf("SelectLayer() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("SelectLayer(). (-expected +got):\n%s", diff)
			}
		})
	}
}
